package bit

// Combine combines two 8 bit values into a single 16 bit value.
// The high byte is the most significant one.
func Combine(high, low uint8) uint16 {
	return (uint16(high) << 8) | uint16(low)
}

// High returns the most significant byte of a 16 bit value.
func High(value uint16) uint8 {
	return uint8(value >> 8)
}

// Low returns the least significant byte of a 16 bit value.
func Low(value uint16) uint8 {
	return uint8(value)
}

// IsSet checks whether the bit at the specified index is 1.
func IsSet(index, value uint8) bool {
	return ((value >> index) & 1) == 1
}

// IsSet16 checks whether the bit at the specified index of a 16 bit value is 1.
func IsSet16(index uint8, value uint16) bool {
	return ((value >> index) & 1) == 1
}

// Set returns the passed byte with the bit at the specified index set to 1.
func Set(index, value uint8) uint8 {
	return value | (1 << index)
}

// Clear returns the passed byte with the bit at the specified index set to 0.
func Clear(index, value uint8) uint8 {
	return value & ^(uint8(1) << index)
}

// GetBitValue returns 1 or 0 depending on the bit at the specified index.
func GetBitValue(index, value uint8) uint8 {
	if IsSet(index, value) {
		return 1
	}

	return 0
}

// ExtractBits extracts bits from highBit to lowBit (inclusive).
// Example: ExtractBits(0b11010110, 6, 4) -> 0b101 (bits 6, 5, 4).
func ExtractBits(value, highBit, lowBit uint8) uint8 {
	width := highBit - lowBit + 1
	mask := uint8((1 << width) - 1)
	return (value >> lowBit) & mask
}
