// Package audio plays synthesized clips. Transport drives the playback
// controls of a studio page over any Media; Player is the Media backed by
// the system audio device through oto.
package audio
