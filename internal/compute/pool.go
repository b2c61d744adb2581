package compute

import "golang.org/x/sync/errgroup"

// launch splits [0, n) into at most workers chunks of at least grain
// indices each and runs kernel on every chunk.
func launch(n, grain, workers int, kernel Kernel) error {
	if n <= 0 {
		return nil
	}
	if grain < 1 {
		grain = 1
	}
	if n <= grain || workers <= 1 {
		return kernel(0, n)
	}

	chunks := workers
	if n/grain < chunks {
		chunks = n / grain
	}
	if chunks < 1 {
		chunks = 1
	}
	chunkSize := (n + chunks - 1) / chunks

	var g errgroup.Group
	g.SetLimit(workers)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		s, e := start, end
		g.Go(func() error {
			return kernel(s, e)
		})
	}
	return g.Wait()
}
