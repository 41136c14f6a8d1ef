// Package fimsync provides an embeddable file integrity synchronization agent.
//
// The agent scans a set of directories into an ordered inventory and keeps
// it consistent with a remote collector. Every sync interval it sends one
// digest of the whole inventory; when the collector disagrees it asks for a
// range to be split, and the agent answers with the digests of both halves
// until single entries are sent in full.
//
// # Basic Usage
//
//	cfg := fimsync.Config{
//	    Directories: []string{"/etc", "/usr/bin"},
//	    StateDir:    "/var/lib/fimsync",
//	    ServiceURL:  "https://collector.example.com",
//	    AuthKey:     "your-api-key",
//	}
//
//	agent, err := fimsync.New(cfg, fimsync.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := agent.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer agent.Stop()
//
// # Lifecycle States
//
// An Agent moves through Stopped, Starting, Running and Stopping. A failed
// start or a shutdown timeout leaves it Crashed, from which Start may be
// called again.
package fimsync
