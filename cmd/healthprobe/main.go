package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/valyala/fasthttp"

	"esupchat/pkg/httpx"
)

// healthprobe is a tiny sidecar used in deployments where the probe
// endpoint must answer even while the main server is cycling. It can also
// proxy a one-shot check against the server's /readyz.
func main() {
	addr := flag.String("addr", ":8081", "listen address")
	ver := flag.String("version", "dev", "version string to return")
	check := flag.String("check", "", "one-shot: GET this URL, exit 0 when it answers 200")
	flag.Parse()

	if *check != "" {
		status, _, err := fasthttp.GetTimeout(nil, *check, 5*time.Second)
		if err != nil || status != fasthttp.StatusOK {
			fmt.Fprintf(os.Stderr, "check %s failed: status=%d err=%v\n", *check, status, err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	health := httpx.FastHTTPAdapter(httpx.HealthHandler(*ver, nil))
	h := func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/health", "/healthz":
			health(ctx)
		default:
			ctx.SetStatusCode(fasthttp.StatusNotFound)
		}
	}

	fmt.Printf("healthprobe listening on %s\n", *addr)
	srv := &fasthttp.Server{
		Handler:            h,
		Name:               "esupchat-healthprobe",
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		MaxRequestBodySize: 1 << 20,
	}
	if err := srv.ListenAndServe(*addr); err != nil {
		fmt.Printf("healthprobe exit: %v\n", err)
	}
}
