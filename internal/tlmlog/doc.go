// Package tlmlog owns the flash telemetry log file format.
//
// Ownership boundary:
// - file header and record header primitives
// - COBS frame decoding and CRC-16/CCITT-FALSE checksums
// - rolling counter gap tracking
// - streaming frame scanner
package tlmlog
