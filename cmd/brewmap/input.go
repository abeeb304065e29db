package main

import (
	"bufio"
	"context"
	"io"
)

// scanLines sends every line of r to lines until r ends or ctx is done.
// It never blocks on a send once ctx is done.
func scanLines(ctx context.Context, r io.Reader, lines chan<- string) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return nil
		}
	}
	return scanner.Err()
}
