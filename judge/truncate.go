package judge

// TruncatedMarker is appended as the last element once a limit cuts
// the output short, per the truncation contract.
const TruncatedMarker = "⯇truncated⯈"

// Truncate walks lines in order, emitting each until either limit is
// reached, then appends TruncatedMarker and stops. A line longer than
// the remaining character budget is emitted as a prefix of that many
// characters (possibly empty) before the marker. Purely
// presentational; used by progress rendering only. A nil limit is
// treated as unbounded for that dimension; both nil returns lines
// unchanged.
func Truncate(lines IoBlock, charLimit, lineLimit *int) IoBlock {
	if charLimit == nil && lineLimit == nil {
		return lines
	}

	remainingChars := -1
	if charLimit != nil {
		remainingChars = *charLimit
	}
	remainingLines := -1
	if lineLimit != nil {
		remainingLines = *lineLimit
	}

	out := make(IoBlock, 0, len(lines))
	for _, line := range lines {
		if remainingLines == 0 {
			out = append(out, TruncatedMarker)
			return out
		}
		if remainingChars >= 0 && len(line) > remainingChars {
			out = append(out, line[:remainingChars], TruncatedMarker)
			return out
		}
		out = append(out, line)
		if remainingChars >= 0 {
			remainingChars -= len(line)
		}
		if remainingLines >= 0 {
			remainingLines--
		}
	}
	return out
}
