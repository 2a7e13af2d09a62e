// Package shutdown runs cleanup hooks when the process is asked to stop.
//
// Wait returns on SIGINT, SIGTERM, or when its context ends, then runs the
// registered hooks in reverse order under a deadline. The play command
// registers its final save here.
package shutdown
