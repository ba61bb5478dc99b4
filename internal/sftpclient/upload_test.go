package sftpclient

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

func TestConfig(t *testing.T) {
	// Test default values
	cfg := Config{
		Host: "test-host",
		User: "test-user",
		Pass: "test-pass",
	}

	// Port should default to 22 in UploadFile if not set
	if cfg.Port != 0 {
		t.Errorf("Expected default Port to be 0, got %d", cfg.Port)
	}

	// RemoteDir should default to "/" in UploadFile if not set
	if cfg.RemoteDir != "" {
		t.Errorf("Expected default RemoteDir to be empty, got %q", cfg.RemoteDir)
	}
}

func TestUploadFileValidation(t *testing.T) {
	ctx := context.Background()
	local := filepath.Join(t.TempDir(), "status.csv")
	if err := os.WriteFile(local, []byte("STUDENT_ID\r\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	// Define constants for repeated values
	const (
		testHost = "127.0.0.1"
		testUser = "test-user"
		testPass = "test-pass"
		testFile = "test.txt"
	)

	testCases := []struct {
		name           string
		cfg            Config
		localPath      string
		remoteFileName string
		errorContains  string
	}{
		{
			name:           "Missing credentials",
			cfg:            Config{},
			localPath:      testFile,
			remoteFileName: testFile,
			errorContains:  "sftp: missing env SFTP_HOST / SFTP_USER / SFTP_PASS",
		},
		{
			name:           "Non-existent local file",
			cfg:            Config{Host: testHost, User: testUser, Pass: testPass},
			localPath:      "non_existent_file.txt",
			remoteFileName: testFile,
			errorContains:  "sftp: open local file",
		},
		{
			name: "Missing known_hosts",
			cfg: Config{Host: testHost, User: testUser, Pass: testPass,
				KnownHostsPath: filepath.Join(t.TempDir(), "known_hosts")},
			localPath:      local,
			remoteFileName: testFile,
			errorContains:  "sftp: known_hosts",
		},
		{
			name:           "Nothing listening",
			cfg:            Config{Host: testHost, Port: closedPort(t), User: testUser, Pass: testPass, InsecureIgnoreHostKey: true},
			localPath:      local,
			remoteFileName: testFile,
			errorContains:  "sftp: dial error",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := UploadFile(ctx, tc.cfg, tc.localPath, tc.remoteFileName)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.errorContains) {
				t.Errorf("Expected error to contain %q, got %q", tc.errorContains, err.Error())
			}
		})
	}
}

func TestHostKeyCallbackKnownHosts(t *testing.T) {
	known := newPublicKey(t)
	other := newPublicKey(t)

	path := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{"sftp.example.com:22"}, known)
	if err := os.WriteFile(path, []byte(line+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cb, err := hostKeyCallback(Config{KnownHostsPath: path})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	remote := &net.TCPAddr{IP: net.ParseIP("203.0.113.7"), Port: 22}

	if err := cb("sftp.example.com:22", remote, known); err != nil {
		t.Errorf("Expected known key to be accepted, got %v", err)
	}
	if err := cb("sftp.example.com:22", remote, other); err == nil {
		t.Error("Expected mismatched key to be rejected")
	}
}

func TestHostKeyCallbackInsecure(t *testing.T) {
	cb, err := hostKeyCallback(Config{InsecureIgnoreHostKey: true, KnownHostsPath: "/does/not/exist"})
	if err != nil || cb == nil {
		t.Fatalf("Expected insecure callback, got %v", err)
	}
	if err := cb("any:22", &net.TCPAddr{}, newPublicKey(t)); err != nil {
		t.Errorf("Expected any key to be accepted, got %v", err)
	}
}

func newPublicKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	key, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// closedPort returns a local port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}
