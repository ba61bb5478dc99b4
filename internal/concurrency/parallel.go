package concurrency

import (
	"context"
	"sync"
)

// ParallelOptions configura el comportamiento del procesamiento paralelo
type ParallelOptions struct {
	// MaxWorkers es el número máximo de trabajadores en paralelo
	MaxWorkers int
}

// DefaultOptions devuelve opciones predeterminadas para procesamiento paralelo
func DefaultOptions() ParallelOptions {
	return ParallelOptions{
		MaxWorkers: 10,
	}
}

func (o ParallelOptions) workers(items int) int {
	n := o.MaxWorkers
	if n <= 0 {
		n = DefaultOptions().MaxWorkers
	}
	if n > items {
		n = items
	}
	return n
}

type outcome[R any] struct {
	index  int
	result R
	err    error
}

// ProcessParallel procesa elementos en paralelo con a lo sumo opts.MaxWorkers goroutines.
//
// Results and errors are index-aligned with items: errs[i] is the error returned for items[i]
// (nil on success). It always waits for every started item to finish; it never returns early
// on the first failure. Once ctx is done, workers stop picking up new items and every item that
// never ran gets ctx.Err() in its error slot.
func ProcessParallel[T any, R any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) (R, error),
) ([]R, []error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	jobs := make(chan int, len(items))
	for i := range items {
		jobs <- i
	}
	close(jobs)

	results := make(chan outcome[R], len(items))

	var wg sync.WaitGroup
	for w := 0; w < opts.workers(len(items)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jobIndex := range jobs {
				if ctx.Err() != nil {
					return
				}
				result, err := itemFunc(ctx, jobIndex, items[jobIndex])
				results <- outcome[R]{jobIndex, result, err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	resultList := make([]R, len(items))
	errs := make([]error, len(items))
	done := make([]bool, len(items))

	for res := range results {
		resultList[res.index] = res.result
		errs[res.index] = res.err
		done[res.index] = true
	}

	for i := range items {
		if !done[i] {
			errs[i] = ctx.Err()
		}
	}

	return resultList, errs
}

// ForEach ejecuta una función para cada elemento en paralelo, sin recolectar resultados.
// Devuelve solo los errores no nulos, en el orden de los elementos.
func ForEach[T any](
	ctx context.Context,
	items []T,
	opts ParallelOptions,
	itemFunc func(ctx context.Context, index int, item T) error,
) []error {
	_, errs := ProcessParallel(ctx, items, opts, func(ctx context.Context, i int, item T) (struct{}, error) {
		return struct{}{}, itemFunc(ctx, i, item)
	})
	return Compact(errs)
}

// Compact drops nil entries.
func Compact(errs []error) []error {
	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
