package video

// SpritePriorityBuffer resolves sprite-to-pixel ownership when sprites
// overlap, see https://gbdev.io/pandocs/OAM.html#drawing-priority.
//
// In non-color mode the rules are:
//   - sprites with lower X coordinates have priority
//   - when X coordinates match, lower OAM indices win.
//
// In color mode the X coordinate is ignored and the lower OAM index always
// wins.
//
// Example: overlap with different X coordinates (non-color mode)
//
//	Pixels:     0  1  2  3  4  5  6  7  8  9 10 11 12 13 14 15 16 17
//	Sprite 0:                  [-----A-----]                    (X=5, OAM=0)
//	Sprite 1:                           [-----B-----]           (X=10, OAM=1)
//	Result:                    [-----A-----]--B-----]
//
// Sprite 0 wins all its pixels because it has the lower X coordinate.
//
// Instead of sorting sprites by priority, the buffer uses per-pixel
// ownership: during selection, each sprite tries to claim the pixels it
// covers, and a claim succeeds if the pixel is unowned or the claimer
// outranks the current owner. During rendering each sprite then draws only
// the pixels it owns, so overlapping sprites can be drawn in any order.
type SpritePriorityBuffer struct {
	// indexOnly switches to the color-mode rule: OAM order decides, X is
	// ignored.
	indexOnly bool

	// ownerIndex tracks which sprite (by OAM index) owns each pixel,
	// -1 for unowned.
	ownerIndex [FramebufferWidth]int

	// ownerX holds the X coordinate of each pixel's owner for the
	// non-color comparison.
	ownerX [FramebufferWidth]int
}

// Clear resets the buffer for a new scanline.
func (s *SpritePriorityBuffer) Clear() {
	for i := range FramebufferWidth {
		s.ownerIndex[i] = -1
		s.ownerX[i] = 0xFF
	}
}

// TryClaimPixel attempts to claim ownership of a pixel for a sprite and
// reports whether the claim succeeded.
func (s *SpritePriorityBuffer) TryClaimPixel(pixelX, spriteIndex, spriteX int) bool {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return false
	}

	currentOwner := s.ownerIndex[pixelX]

	if currentOwner == -1 {
		s.ownerIndex[pixelX] = spriteIndex
		s.ownerX[pixelX] = spriteX
		return true
	}

	if s.indexOnly {
		if spriteIndex < currentOwner {
			s.ownerIndex[pixelX] = spriteIndex
			s.ownerX[pixelX] = spriteX
			return true
		}
		return false
	}

	currentX := s.ownerX[pixelX]

	if spriteX < currentX {
		s.ownerIndex[pixelX] = spriteIndex
		s.ownerX[pixelX] = spriteX
		return true
	}

	if spriteX == currentX && spriteIndex < currentOwner {
		s.ownerIndex[pixelX] = spriteIndex
		s.ownerX[pixelX] = spriteX
		return true
	}

	return false
}

// GetOwner returns the sprite index that owns a pixel, or -1 if none.
func (s *SpritePriorityBuffer) GetOwner(pixelX int) int {
	if pixelX < 0 || pixelX >= FramebufferWidth {
		return -1
	}
	return s.ownerIndex[pixelX]
}
