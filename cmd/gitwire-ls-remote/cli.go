package main

import "flag"

// Options holds CLI options for the ls-remote client.
type Options struct {
    ConfigPath string
    Remote     string
    Service    string
    Version    int
    TraceFile  string
    TimeoutSec int
}

// ParseFlags parses CLI flags from args and returns Options. The remote may
// be given as the first positional argument instead of -remote.
func ParseFlags(args []string) Options {
    fs := flag.NewFlagSet("gitwire-ls-remote", flag.ExitOnError)
    var opts Options
    fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
    fs.StringVar(&opts.Remote, "remote", "", "Remote URL (git://, ssh://, http(s)://, file path or user@host:path)")
    fs.StringVar(&opts.Service, "service", "", "Service to invoke (default from config)")
    fs.IntVar(&opts.Version, "protocol", -1, "Protocol version to ask for: 0, 1 or 2 (default from config)")
    fs.StringVar(&opts.TraceFile, "trace", "", "Write a CBOR packet trace to this file")
    fs.IntVar(&opts.TimeoutSec, "timeout", 30, "Overall timeout in seconds, 0 for none")
    _ = fs.Parse(args)
    if opts.Remote == "" && fs.NArg() > 0 {
        opts.Remote = fs.Arg(0)
    }
    return opts
}
