package render

// PixelToShade maps a packed display pixel to its monochrome shade, 0 for
// black through 3 for white. Unknown colors count as black.
func PixelToShade(pixel uint32) int {
	switch pixel {
	case 0x000000FF:
		return 0
	case 0x4C4C4CFF:
		return 1
	case 0x989898FF:
		return 2
	case 0xFFFFFFFF:
		return 3
	default:
		return 0
	}
}

// GetHalfBlockChar picks the character that renders two vertically stacked
// shades in one cell. The caller pairs it with foreground and background
// colors.
func GetHalfBlockChar(topShade, bottomShade int) rune {
	if topShade == bottomShade {
		return '█'
	} else if topShade == 3 && bottomShade != 3 {
		// White on top renders as the bottom shade's lower half.
		return '▄'
	}
	return '▀'
}
