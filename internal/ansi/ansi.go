// Package ansi removes terminal escape sequences from captured output.
package ansi

// scanner states while walking a byte stream.
const (
	statePlain = iota
	stateEsc         // seen ESC, deciding what follows
	stateCSI         // ESC [ ... parameter/intermediate bytes until a final byte
	stateString      // OSC/DCS/PM/APC string, runs until BEL or ST
	stateStringEsc   // seen ESC inside a string sequence (possible ST)
	stateCharset     // ESC ( or ESC ), one designator byte follows
)

// Strip removes ANSI escape sequences and non-printing control bytes from s.
// Whole sequences are recognized by a small state machine rather than
// substring substitution, so a sequence is either removed entirely or, if
// truncated at the end of the input, dropped without corrupting visible
// text. Carriage returns are dropped, backspaces erase the previous visible
// byte, and remaining control bytes other than newline and tab are removed.
func Strip(s string) string {
	out := make([]byte, 0, len(s))
	state := statePlain

	for i := 0; i < len(s); i++ {
		ch := s[i]

		switch state {
		case statePlain:
			switch {
			case ch == 0x1b:
				state = stateEsc
			case ch == '\r':
				// discard
			case ch == '\b':
				if len(out) > 0 {
					out = out[:len(out)-1]
				}
			case (ch < 0x20 || ch == 0x7f) && ch != '\n' && ch != '\t':
				// strip other control bytes
			default:
				out = append(out, ch)
			}

		case stateEsc:
			switch ch {
			case '[':
				state = stateCSI
			case ']', 'P', '^', '_', 'k':
				state = stateString
			case '(', ')':
				state = stateCharset
			default:
				// two-byte escape (keypad modes, RIS, etc.)
				state = statePlain
			}

		case stateCSI:
			// parameter bytes 0x30-0x3f and intermediate bytes 0x20-0x2f
			// accumulate; a final byte 0x40-0x7e ends the sequence.
			if ch >= 0x40 && ch <= 0x7e {
				state = statePlain
			} else if ch < 0x20 || ch > 0x3f {
				// malformed; stop consuming so text is not swallowed
				state = statePlain
			}

		case stateString:
			if ch == 0x07 {
				state = statePlain
			} else if ch == 0x1b {
				state = stateStringEsc
			}

		case stateStringEsc:
			if ch == '\\' {
				state = statePlain // ST terminator
			} else if ch != 0x1b {
				state = stateString
			}

		case stateCharset:
			state = statePlain
		}
	}

	return string(out)
}
