// Package config collects the node's operational parameters. Following
// the rest of this codebase, flags cover everything local to the
// process; the one cluster-bootstrap value is read straight from its
// environment variable rather than wrapped in a flag, since a bare
// flag.String("known-node", os.Getenv(...)) already says everything a
// dedicated env-parsing dependency would.
package config

import (
	"flag"
	"os"
)

// ListenPort is the fixed TCP port every node listens on for cluster
// traffic (reads, writes, replication, membership, fault handling).
const ListenPort = 52525

// KnownNodeEnv is the environment variable carrying an optional
// bootstrap peer hostname or IPv4.
const KnownNodeEnv = "DS_KNOWN_NODE"

// Config is a node's resolved startup configuration.
type Config struct {
	// ListenAddr holds the -listen flag. The cluster listener
	// (cluster.Node.Listen) does not read it: it always binds every
	// interface on ListenPort.
	ListenAddr string

	// AdminAddr is the address the read-only admin/health sidecar binds
	// to. Empty disables the sidecar.
	AdminAddr string

	// KnownNode is the bootstrap peer's hostname or IPv4, or "" to
	// start an empty ring.
	KnownNode string
}

// Parse reads flags and the DS_KNOWN_NODE environment variable into a
// Config. Call once from main.
func Parse() Config {
	listenAddr := flag.String("listen", "", "cluster listen address (not used: the cluster listener always binds all interfaces on port 52525)")
	adminAddr := flag.String("admin-addr", ":8080", "admin/health sidecar listen address; empty disables it")
	flag.Parse()

	return Config{
		ListenAddr: *listenAddr,
		AdminAddr:  *adminAddr,
		KnownNode:  os.Getenv(KnownNodeEnv),
	}
}
