// Package playback drives a single media source for the terminal player.
//
// [Controller] is a state machine over [Idle], [Loading], [ReadyPaused], [Playing] and
// [Errored]. User intents (play, pause, seek, volume) arrive as method calls; media
// lifecycle events arrive through [Events] tagged with the [Ticket] issued by the load
// that produced them. Events carrying any ticket other than the pending one are dropped,
// so a slow load abandoned by a newer LoadSong can never move the controller.
//
// Whether a load should start playing once ready is decided when the load is issued
// (autoplay if the controller was Playing) and adjusted only by explicit Play/Pause calls
// while the load is in flight.
//
// [Queue] holds the ordered songs the player steps through. The controller itself
// stops at the end of a song; advancing is left to the [Controller.OnEnded] hook.
package playback
