package domain

import "fmt"

// Stem is one of the ten heavenly stems, indexed 0 (甲) to 9 (癸).
type Stem uint8

// Branch is one of the twelve earthly branches, indexed 0 (子) to 11 (亥).
type Branch uint8

const (
	// StemCount is the size of the stem cycle.
	StemCount = 10
	// BranchCount is the size of the branch cycle.
	BranchCount = 12
	// CycleLength is the length of the sexagenary cycle.
	CycleLength = 60
)

var stemSymbols = [StemCount]string{"甲", "乙", "丙", "丁", "戊", "己", "庚", "辛", "壬", "癸"}

var branchSymbols = [BranchCount]string{"子", "丑", "寅", "卯", "辰", "巳", "午", "未", "申", "酉", "戌", "亥"}

var stemElements = [StemCount]FiveElement{
	ElementWood, ElementWood,
	ElementFire, ElementFire,
	ElementEarth, ElementEarth,
	ElementMetal, ElementMetal,
	ElementWater, ElementWater,
}

var branchElements = [BranchCount]FiveElement{
	ElementWater, // 子
	ElementEarth, // 丑
	ElementWood,  // 寅
	ElementWood,  // 卯
	ElementEarth, // 辰
	ElementFire,  // 巳
	ElementFire,  // 午
	ElementEarth, // 未
	ElementMetal, // 申
	ElementMetal, // 酉
	ElementEarth, // 戌
	ElementWater, // 亥
}

// StemAt wraps any integer onto the stem cycle.
func StemAt(index int) Stem {
	return Stem(mod(index, StemCount))
}

// BranchAt wraps any integer onto the branch cycle.
func BranchAt(index int) Branch {
	return Branch(mod(index, BranchCount))
}

// Index returns the cyclic position.
func (s Stem) Index() int { return int(s) % StemCount }

// String returns the Han symbol.
func (s Stem) String() string { return stemSymbols[s.Index()] }

// Element returns the stem's fixed element.
func (s Stem) Element() FiveElement { return stemElements[s.Index()] }

// Index returns the cyclic position.
func (b Branch) Index() int { return int(b) % BranchCount }

// String returns the Han symbol.
func (b Branch) String() string { return branchSymbols[b.Index()] }

// Element returns the branch's fixed element.
func (b Branch) Element() FiveElement { return branchElements[b.Index()] }

// Pillar pairs a stem with a branch.
type Pillar struct {
	Stem   Stem
	Branch Branch
}

// PillarFromCycle returns the pillar at the given position of the 60-term cycle.
func PillarFromCycle(index int) Pillar {
	index = mod(index, CycleLength)
	return Pillar{Stem: StemAt(index), Branch: BranchAt(index)}
}

// String renders the pillar as two Han characters, e.g. 甲子.
func (p Pillar) String() string {
	return p.Stem.String() + p.Branch.String()
}

// FourPillarsChart is the BaZi birth chart. Values are immutable once built.
type FourPillarsChart struct {
	Year              Pillar
	Month             Pillar
	Day               Pillar
	Hour              Pillar
	FavorableElements ElementSet
}

// Pillars returns the pillars in year, month, day, hour order.
func (c FourPillarsChart) Pillars() [4]Pillar {
	return [4]Pillar{c.Year, c.Month, c.Day, c.Hour}
}

// DayMaster returns the element of the day stem.
func (c FourPillarsChart) DayMaster() FiveElement {
	return c.Day.Stem.Element()
}

// String renders the chart as four space separated pillars.
func (c FourPillarsChart) String() string {
	return fmt.Sprintf("%s %s %s %s", c.Year, c.Month, c.Day, c.Hour)
}

func mod(value, size int) int {
	r := value % size
	if r < 0 {
		r += size
	}
	return r
}
