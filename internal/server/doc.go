// Package server wires configured stores into a single cache chain and hosts
// the Fiber diagnostics service. The StoreRegistry opens every [[Store]] table
// through the driver registry, wraps each backend with hit/miss counters, and
// composes them in file order. The HTTP surface is read-only: it reports which
// stores are configured and exports their counters, but never exposes keys or
// values over the network.
package server
