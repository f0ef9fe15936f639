package index

// BadIPv4 - what IPv4StrToInt returns for a malformed address.
const BadIPv4 = 0xFFFFFFFF

// IPv4StrToInt - "a.b.c.d" to its uint32 form, BadIPv4 on malformed input.
func IPv4StrToInt(s string) uint32 {
	var (
		ip, n uint32
		r     uint = 24
		dots  byte = 1 // consecutive dots, the leading one included
	)

	for i := 0; i < len(s); i++ {
		switch {
		case '0' <= s[i] && s[i] <= '9':
			n = n*10 + uint32(s[i]-'0')
			if n > 0xFF {
				return BadIPv4
			}

			dots = 0
		case s[i] == '.':
			if r == 0 || dots > 0 {
				return BadIPv4
			}

			ip |= n << r
			r -= 8
			n = 0
			dots++
		default:
			return BadIPv4
		}
	}

	if r != 0 || dots > 0 {
		return BadIPv4
	}

	return ip | n
}
