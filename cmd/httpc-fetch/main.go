// Command httpc-fetch issues a single HTTP request from the command
// line, curl-style, using the httpc client engine.
//
// Usage:
//
//	httpc-fetch [flags] <url>
//	httpc-fetch -profile NAME [flags]
//
// Configuration comes from HTTPC_-prefixed environment variables, a
// .env file, or the file named by HTTPC_CONFIG_FILE.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ferrhold/protokit/httpc"
	"github.com/ferrhold/protokit/httpc/cookiejar"
	"github.com/ferrhold/protokit/internal/config"
	"github.com/ferrhold/protokit/internal/obs"
	"github.com/ferrhold/protokit/internal/profile"
)

// headerFlags collects repeated -H values.
type headerFlags []string

func (h *headerFlags) String() string { return strings.Join(*h, ", ") }

func (h *headerFlags) Set(v string) error {
	*h = append(*h, v)
	return nil
}

type options struct {
	method      string
	headers     headerFlags
	data        string
	output      string
	include     bool
	profileName string
	verbose     bool
	url         string
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "httpc-fetch: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := obs.ParseLevel(cfg.LogLevel)
	if opts.verbose {
		level = obs.Debug
	}
	var logger obs.Logger
	if cfg.LogFormat == "json" {
		logger = obs.NewZerologJSON(os.Stderr, level)
	} else {
		logger = obs.NewZerolog(os.Stderr, level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := httpc.New(clientConfig(cfg))
	defer c.Close()
	c.Logger = logger

	if cfg.CookieJarPath != "" {
		jar, err := cookiejar.OpenBolt(cfg.CookieJarPath)
		if err != nil {
			return fmt.Errorf("open cookie jar: %w", err)
		}
		defer func() {
			if cerr := jar.Close(); cerr != nil {
				logger.Logf(obs.Warn, "close cookie jar: %v", cerr)
			}
		}()
		c.Jar = jar
	}

	req, err := buildRequest(opts, cfg)
	if err != nil {
		return err
	}

	res, err := c.Do(ctx, req)
	if err != nil {
		// A status failure still carries the response; show it so the
		// caller sees what the server said, then exit nonzero.
		if code, ok := httpc.IsHTTPStatus(err); ok {
			if e, _ := httpc.AsError(err); e.Response != nil {
				if werr := writeResponse(opts, e.Response); werr != nil {
					return werr
				}
			}
			return fmt.Errorf("server returned status %d", code)
		}
		return err
	}
	return writeResponse(opts, res)
}

func parseFlags(args []string) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("httpc-fetch", flag.ContinueOnError)
	fs.StringVar(&opts.method, "X", "", "request method (default GET, or POST with -d)")
	fs.Var(&opts.headers, "H", "request header as \"Name: Value\", repeatable")
	fs.StringVar(&opts.data, "d", "", "request body")
	fs.StringVar(&opts.output, "o", "", "write the response body to this file")
	fs.BoolVar(&opts.include, "i", false, "include the status line and headers in the output")
	fs.StringVar(&opts.profileName, "profile", "", "run the named profile from the profiles file")
	fs.BoolVar(&opts.verbose, "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.url = fs.Arg(0)
	if opts.url == "" && opts.profileName == "" {
		return nil, fmt.Errorf("usage: httpc-fetch [flags] <url>")
	}
	return opts, nil
}

// buildRequest assembles the request from the profile (when named) and
// the flags. Flags override profile values.
func buildRequest(opts *options, cfg *config.Config) (*httpc.Request, error) {
	req := &httpc.Request{Method: "GET"}

	if opts.profileName != "" {
		profiles, err := profile.Load(cfg.ProfilesFile)
		if err != nil {
			return nil, err
		}
		p, ok := profile.Find(profiles, opts.profileName)
		if !ok {
			return nil, fmt.Errorf("profile %q not found in %s", opts.profileName, cfg.ProfilesFile)
		}
		body, err := p.ResolveBody()
		if err != nil {
			return nil, err
		}
		req.Method = p.Method
		req.URL = p.URL
		req.Body = body
		for _, pair := range p.HeaderPairs() {
			req.Header.Add(pair[0], pair[1])
		}
	}

	if opts.url != "" {
		req.URL = opts.url
	}
	if opts.data != "" {
		req.Body = []byte(opts.data)
		if opts.method == "" && opts.profileName == "" {
			req.Method = "POST"
		}
	}
	for _, line := range opts.headers {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed -H value %q (want \"Name: Value\")", line)
		}
		req.Header.Add(name, strings.TrimSpace(value))
	}
	if opts.method != "" {
		req.Method = strings.ToUpper(opts.method)
	}
	return req, nil
}

func clientConfig(cfg *config.Config) httpc.Config {
	out := httpc.Config{
		Timeout:        cfg.Timeout,
		ConnectTimeout: cfg.ConnectTimeout,
		MaxRedirects:   cfg.MaxRedirects,
		UserAgent:      cfg.UserAgent,
		DisablePooling: cfg.DisablePooling,
		MaxIdlePerHost: cfg.MaxIdlePerHost,
		IdleTimeout:    cfg.IdleTimeout,
	}
	if !cfg.FollowRedirects {
		out.RedirectPolicy = httpc.RedirectNone
	}
	if !cfg.StatusErrors {
		out.StatusPolicy = httpc.StatusReturn
	}
	return out
}

// writeResponse prints the response. The body goes to stdout or, with
// -o, to a file; -i prepends the status line and headers on stdout.
func writeResponse(opts *options, res *httpc.Response) error {
	if opts.include {
		fmt.Printf("%s %d %s\n", res.Proto, res.StatusCode, res.Reason)
		for _, f := range res.Header {
			fmt.Printf("%s: %s\n", f.Name, f.Value)
		}
		fmt.Println()
	}

	if opts.output != "" {
		if err := os.WriteFile(opts.output, res.Body, 0o644); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
		return nil
	}
	_, err := os.Stdout.Write(res.Body)
	return err
}
