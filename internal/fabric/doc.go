// Package fabric builds the in-memory graph of one InfiniBand subnet.
//
// A Builder owns a fresh domain.Graph. Active-port records are fed to
// AddActivePort, which resolves both endpoints through the Registry,
// finds or creates the edge between them and stores the physical link at
// its port slot. Once every record of the subnet is in, ResolveSiblings
// pairs each link with the link describing the same cable from the far
// end.
//
// Builders are not safe for concurrent use. The AnonymousNamer handed to
// NewBuilder is, and is meant to be shared by every subnet of a run.
package fabric
