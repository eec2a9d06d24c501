// Package loader reads the per-subnet input files of a fabric dump.
//
// An input directory holds one discovery file per subnet,
// ib-subnet-<subnet>.txt, and optionally one route directory per subnet,
// ibroutes-<subnet>/, containing a forwarding dump per switch named
// ibroute-<guid>-<n>.txt.
//
// Malformed lines are logged and skipped. Only an input that cannot be
// opened or listed is fatal; such errors wrap ErrFatalInput.
package loader
