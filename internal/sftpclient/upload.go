package sftpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

type Config struct {
	Host      string
	Port      int
	User      string
	Pass      string
	RemoteDir string
	// KnownHostsPath defaults to ~/.ssh/known_hosts.
	KnownHostsPath        string
	InsecureIgnoreHostKey bool
}

// UploadFile copies localPath to RemoteDir/remoteFileName, creating RemoteDir if needed.
func UploadFile(ctx context.Context, cfg Config, localPath string, remoteFileName string) error {
	if cfg.Host == "" || cfg.User == "" || cfg.Pass == "" {
		return fmt.Errorf("sftp: missing env SFTP_HOST / SFTP_USER / SFTP_PASS")
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = "/"
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("sftp: open local file: %w", err)
	}
	defer src.Close()

	cb, err := hostKeyCallback(cfg)
	if err != nil {
		return err
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Pass)},
		HostKeyCallback: cb,
		Timeout:         20 * time.Second,
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))

	sshClient, err := dial(ctx, addr, sshCfg)
	if err != nil {
		return err
	}
	defer sshClient.Close()

	sftpCli, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("sftp: new client: %w", err)
	}
	defer sftpCli.Close()

	// Asegura dir destino
	if err := sftpCli.MkdirAll(cfg.RemoteDir); err != nil {
		return fmt.Errorf("sftp: mkdir %s: %w", cfg.RemoteDir, err)
	}

	remotePath := path.Join(cfg.RemoteDir, remoteFileName)
	dst, err := sftpCli.Create(remotePath)
	if err != nil {
		return fmt.Errorf("sftp: create remote file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("sftp: upload copy: %w", err)
	}
	return nil
}

// dial honours ctx for the TCP connect and bounds the SSH handshake by the ctx deadline.
func dial(ctx context.Context, addr string, sshCfg *ssh.ClientConfig) (*ssh.Client, error) {
	d := net.Dialer{Timeout: sshCfg.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("sftp: dial canceled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("sftp: dial error: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftp: handshake: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

func hostKeyCallback(cfg Config) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	p := cfg.KnownHostsPath
	if p == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("sftp: locate known_hosts: %w", err)
		}
		p = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(p)
	if err != nil {
		return nil, fmt.Errorf("sftp: known_hosts %s: %w", p, err)
	}
	return cb, nil
}
