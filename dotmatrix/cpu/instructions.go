package cpu

import "github.com/dmgcore/go-dotmatrix/dotmatrix/bit"

func (c *CPU) pushStack(value uint16) {
	c.sp--
	c.bus.Write(c.sp, bit.High(value))
	c.sp--
	c.bus.Write(c.sp, bit.Low(value))
}

func (c *CPU) popStack() uint16 {
	low := c.bus.Read(c.sp)
	c.sp++
	high := c.bus.Read(c.sp)
	c.sp++

	return bit.Combine(high, low)
}

func (c *CPU) inc(r *uint8) {
	*r++
	value := *r

	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(halfCarryFlag, (value&0xF) == 0)
	c.resetFlag(subFlag)
}

func (c *CPU) dec(r *uint8) {
	*r--
	value := *r

	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(halfCarryFlag, (value&0xF) == 0xF)
	c.setFlag(subFlag)
}

func (c *CPU) rlc(r *uint8) {
	value := *r
	carry := value > 0x7F

	value = (value << 1) | (value >> 7)
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(carryFlag, carry)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) rl(r *uint8) {
	value := *r
	carry := c.flagToBit(carryFlag)

	c.setFlagToCondition(carryFlag, value > 0x7F)

	value = (value << 1) | carry
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) rrc(r *uint8) {
	value := *r
	carry := value&1 != 0

	value = (value >> 1) | (value << 7)
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.setFlagToCondition(carryFlag, carry)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) rr(r *uint8) {
	value := *r
	carry := c.flagToBit(carryFlag) << 7

	c.setFlagToCondition(carryFlag, value&1 != 0)

	value = (value >> 1) | carry
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) sla(r *uint8) {
	value := *r

	c.setFlagToCondition(carryFlag, value > 0x7F)

	value <<= 1
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

// sra shifts right arithmetically: the MSb keeps its value.
func (c *CPU) sra(r *uint8) {
	value := *r

	c.setFlagToCondition(carryFlag, value&1 != 0)

	value = (value >> 1) | (value & 0x80)
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) srl(r *uint8) {
	value := *r

	c.setFlagToCondition(carryFlag, value&1 != 0)

	value >>= 1
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
}

func (c *CPU) swap(r *uint8) {
	value := (*r << 4) | (*r >> 4)
	*r = value

	c.setFlagToCondition(zeroFlag, value == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

// addToA sets the result of adding a value to A, while setting all relevant flags.
func (c *CPU) addToA(value uint8) {
	a := c.a
	result := a + value

	carry := (uint16(a) + uint16(value)) > 0xFF
	halfCarry := (a&0xF)+(value&0xF) > 0xF

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(carryFlag, carry)
	c.setFlagToCondition(halfCarryFlag, halfCarry)

	c.a = result
}

// adc adds a value plus the current carry bit to A.
func (c *CPU) adc(value uint8) {
	a := c.a
	carry := c.flagToBit(carryFlag)
	result := a + value + carry

	c.setFlagToCondition(zeroFlag, result == 0)
	c.resetFlag(subFlag)
	c.setFlagToCondition(carryFlag, uint16(a)+uint16(value)+uint16(carry) > 0xFF)
	c.setFlagToCondition(halfCarryFlag, (a&0xF)+(value&0xF)+carry > 0xF)

	c.a = result
}

// addToHL sets the result of adding a 16 bit value to HL, while setting
// relevant flags. The zero flag is left untouched.
func (c *CPU) addToHL(value uint16) {
	hl := c.getHL()
	result := hl + value

	carry := (uint32(hl) + uint32(value)) > 0xFFFF
	halfCarry := (hl&0xFFF)+(value&0xFFF) > 0xFFF

	c.resetFlag(subFlag)
	c.setFlagToCondition(carryFlag, carry)
	c.setFlagToCondition(halfCarryFlag, halfCarry)

	c.setHL(result)
}

// addSPOffset returns SP plus the signed immediate. Both carries come
// from the low byte addition; zero and subtract always clear.
func (c *CPU) addSPOffset() uint16 {
	n := uint16(int16(c.readSignedImmediate()))
	sp := c.sp

	c.resetFlag(zeroFlag)
	c.resetFlag(subFlag)
	c.setFlagToCondition(halfCarryFlag, (sp&0xF)+(n&0xF) > 0xF)
	c.setFlagToCondition(carryFlag, (sp&0xFF)+(n&0xFF) > 0xFF)

	return sp + n
}

// sub will subtract the value from register A and set all relevant flags.
func (c *CPU) sub(value uint8) {
	a := c.a
	result := a - value

	c.a = result

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(carryFlag, a < value)
	c.setFlagToCondition(halfCarryFlag, a&0xF < value&0xF)
}

// sbc subtracts the value plus the current carry bit from A.
func (c *CPU) sbc(value uint8) {
	a := c.a
	carry := c.flagToBit(carryFlag)
	result := a - value - carry

	c.a = result

	c.setFlagToCondition(zeroFlag, result == 0)
	c.setFlag(subFlag)
	c.setFlagToCondition(carryFlag, uint16(a) < uint16(value)+uint16(carry))
	c.setFlagToCondition(halfCarryFlag, uint16(a&0xF) < uint16(value&0xF)+uint16(carry))
}

func (c *CPU) and(value uint8) {
	c.a &= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) or(value uint8) {
	c.a |= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

func (c *CPU) xor(value uint8) {
	c.a ^= value

	c.setFlagToCondition(zeroFlag, c.a == 0)
	c.resetFlag(subFlag)
	c.resetFlag(halfCarryFlag)
	c.resetFlag(carryFlag)
}

// cp sets the flags of a subtraction, discarding the result.
func (c *CPU) cp(value uint8) {
	a := c.a

	c.setFlagToCondition(zeroFlag, a == value)
	c.setFlag(subFlag)
	c.setFlagToCondition(carryFlag, a < value)
	c.setFlagToCondition(halfCarryFlag, a&0xF < value&0xF)
}

// daa adjusts A to a valid binary coded decimal after an arithmetic
// instruction, driven by the subtract and carry flags that it left.
// The carry flag is sticky: it can only be set here, never cleared.
func (c *CPU) daa() {
	a := uint16(c.a)

	if c.isSetFlag(subFlag) {
		if c.isSetFlag(halfCarryFlag) {
			a = (a - 0x06) & 0xFF
		}
		if c.isSetFlag(carryFlag) {
			a -= 0x60
		}
	} else {
		if c.isSetFlag(halfCarryFlag) || a&0x0F > 0x09 {
			a += 0x06
		}
		if c.isSetFlag(carryFlag) || a > 0x9F {
			a += 0x60
		}
	}

	c.resetFlag(halfCarryFlag)
	if a&0x100 != 0 {
		c.setFlag(carryFlag)
	}

	c.a = uint8(a)
	c.setFlagToCondition(zeroFlag, c.a == 0)
}

// bit tests a single bit of a value; the carry flag is left untouched.
func (c *CPU) bit(index, value uint8) {
	c.setFlagToCondition(zeroFlag, !bit.IsSet(index, value))
	c.resetFlag(subFlag)
	c.setFlag(halfCarryFlag)
}

func (c *CPU) set(index uint8, r *uint8) {
	*r = bit.Set(index, *r)
}

func (c *CPU) res(index uint8, r *uint8) {
	*r = bit.Clear(index, *r)
}

// jr performs a relative jump using the signed immediate value (byte)
func (c *CPU) jr() {
	n := c.readSignedImmediate()
	c.pc = uint16(int32(c.pc) + int32(n))
}

// jp performs a jump using the immediate value (16 bit word)
func (c *CPU) jp() {
	c.pc = c.readImmediateWord()
}

// call pushes the address of the next instruction, then jumps to the
// immediate word.
func (c *CPU) call() {
	nn := c.readImmediateWord()
	c.pushStack(c.pc)
	c.pc = nn
}

// ret pops the return address into PC.
func (c *CPU) ret() {
	c.pc = c.popStack()
}

// rst pushes PC and jumps to one of the fixed restart vectors.
func (c *CPU) rst(vector uint16) {
	c.pushStack(c.pc)
	c.pc = vector
}
