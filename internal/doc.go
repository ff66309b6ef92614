// Package internal holds small cross-cutting helpers shared by the engine:
// the default crypto randomness source and numeric code generation.
package internal
