// Command fibbench is a minimal reference benches binary: two
// recursive-fibonacci benchmarks, registered and run the way any caller
// of the yab library would, generalized from the source's own
// benches/fib.rs sample.
package main

import (
	"os"

	"github.com/cgbench/yab"
)

func fibonacci(n uint64) uint64 {
	if n < 2 {
		return 1
	}
	return fibonacci(n-1) + fibonacci(n-2)
}

func main() {
	code := yab.New().
		Bench("fib_short", func() any { return fibonacci(10) }).
		Bench("fib_long", func() any { return fibonacci(30) }).
		Run()
	os.Exit(code)
}
