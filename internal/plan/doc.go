// Package plan implements the bitrate and scale planner: request
// normalization, trim-segment canonicalization, the reserve-budget bitrate
// split, bits-per-pixel driven resolution selection, automatic frame-rate
// choice, and the overshoot feedback correction.
//
// Everything here is pure computation; no I/O happens in this package.
package plan
