// Package assembler turns beacon and telemetry log byte streams into
// labeled messages and out-of-band signals delivered to a Sink.
package assembler
