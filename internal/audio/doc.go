// Package audio implements [playback.Media] on top of gopxl/beep.
//
// [NewPlayer] returns a speaker-backed player when the build supports native audio
// output and a [Silent] player otherwise. Both fetch the source over HTTP (or from a
// local path), decode it in memory and deliver media events from their own goroutines.
//
// [ProbeDuration] is used at upload time to record a song's length.
package audio
