package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"metalwatch/internal/domain"
	"metalwatch/internal/fetch"
)

func main() {
	timeout := flag.Duration("timeout", fetch.DefaultTimeout, "request timeout")
	userAgent := flag.String("user-agent", fetch.DefaultUserAgent, "User-Agent header")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: metalwatch-fetch [options] <url|metal-id>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	target := flag.Arg(0)
	for _, m := range domain.Builtins() {
		if m.ID == target {
			target = m.URL
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	price, err := fetch.NewHTTPFetcher(*timeout, *userAgent).FetchPrice(ctx, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch %s: %v\n", target, err)
		os.Exit(1)
	}
	fmt.Println(price)
}
