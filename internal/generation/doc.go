// Package generation is the boundary between the song pipeline and the
// external AI vendors that write lyrics, render audio and assemble video.
//
// Every vendor response is normalized here into a Result: Completed,
// Processing (carrying an opaque JobHandle) or Failed. Nothing
// vendor-specific crosses this package's interfaces. AudioChain orders the
// configured audio vendors as primary plus one fallback.
package generation
