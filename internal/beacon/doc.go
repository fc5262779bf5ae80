// Package beacon owns the beacon container wire format.
//
// Ownership boundary:
// - container header and sub-header primitives
// - per-container sub-message framing and stop reasons
// - container builders for replay captures
//
// Cross-container reassembly lives in package assembler.
package beacon
