package wuge

// Fortune classifies a numerology number.
type Fortune string

const (
	// FortuneAuspicious marks 吉 numbers.
	FortuneAuspicious Fortune = "auspicious"
	// FortuneNeutral marks 半吉 numbers.
	FortuneNeutral Fortune = "neutral"
	// FortuneInauspicious marks 凶 numbers.
	FortuneInauspicious Fortune = "inauspicious"
)

// Points converts a fortune into the 0-100 scale used by the overall score.
func (f Fortune) Points() int {
	switch f {
	case FortuneAuspicious:
		return 100
	case FortuneNeutral:
		return 60
	default:
		return 20
	}
}

type fortuneEntry struct {
	label   string
	fortune Fortune
	summary string
}

const (
	ji    = FortuneAuspicious
	banji = FortuneNeutral
	xiong = FortuneInauspicious
)

// fortunes is indexed by number-1 for the classical 81 numbers.
var fortunes = [NumberCycle]fortuneEntry{
	{"太极之数", ji, "origin of all things, steady growth"},
	{"两仪之数", xiong, "unsettled, lacking direction"},
	{"三才之数", ji, "wisdom and prosperity"},
	{"四象之数", xiong, "hardship and instability"},
	{"五行之数", ji, "balance and long life"},
	{"六爻之数", ji, "abundant blessings"},
	{"七政之数", ji, "resolute and independent"},
	{"八卦之数", ji, "perseverance brings success"},
	{"大成之数", xiong, "great talent, little reward"},
	{"终结之数", xiong, "emptiness and loss"},
	{"旱苗逢雨", ji, "revival after drought"},
	{"掘井无泉", xiong, "effort without result"},
	{"春日牡丹", ji, "talent and good fortune"},
	{"破兆", xiong, "separation and loneliness"},
	{"福寿", ji, "fortune and longevity"},
	{"厚重", ji, "respected and generous"},
	{"刚强", ji, "firm will overcomes obstacles"},
	{"铁镜重磨", ji, "renewed strength and success"},
	{"多难", xiong, "many obstacles"},
	{"屋下藏金", xiong, "hidden setbacks"},
	{"明月中天", ji, "leadership and independence"},
	{"秋草逢霜", xiong, "decline under pressure"},
	{"壮丽", ji, "rising like the morning sun"},
	{"掘藏得金", ji, "wealth through diligence"},
	{"荣俊", ji, "quick-witted and talented"},
	{"变怪", banji, "heroic but turbulent"},
	{"增长", banji, "ambition tempered by criticism"},
	{"阔水浮萍", banji, "drifting without anchor"},
	{"智谋", ji, "intelligence and resources"},
	{"非运", banji, "uncertain rise and fall"},
	{"春日花开", ji, "wisdom, courage and harmony"},
	{"宝马金鞍", ji, "unexpected good fortune"},
	{"旭日升天", ji, "prosperous and renowned"},
	{"破家", xiong, "misfortune at home"},
	{"高楼望月", ji, "gentle and peaceful"},
	{"波澜重叠", xiong, "waves of trouble"},
	{"猛虎出林", ji, "authority and loyalty"},
	{"磨铁成针", banji, "success in arts through patience"},
	{"富贵荣华", ji, "wealth and honour"},
	{"退安", banji, "caution preserves peace"},
	{"有德", ji, "virtue and high standing"},
	{"寒蝉在柳", banji, "talent scattered over many paths"},
	{"散财破产", banji, "outward gain, inner loss"},
	{"烦闷", xiong, "worry and frustration"},
	{"顺风", ji, "smooth sailing"},
	{"浪里淘金", xiong, "hardship before reward"},
	{"点石成金", ji, "blossoming good fortune"},
	{"古松立鹤", ji, "wise counsel and virtue"},
	{"转变", banji, "fortune that changes with the times"},
	{"小舟入海", banji, "success then decline"},
	{"沉浮", banji, "alternating rise and fall"},
	{"达眼", ji, "foresight and achievement"},
	{"曲卷难星", banji, "fortunate outside, troubled within"},
	{"石上栽花", xiong, "effort yields little"},
	{"善恶", banji, "prosperity hiding trouble"},
	{"浪里行舟", xiong, "lack of perseverance"},
	{"日照春松", ji, "success after hardship"},
	{"晚行遇月", banji, "late prosperity"},
	{"寒蝉悲风", xiong, "lack of courage"},
	{"无谋", xiong, "confusion and darkness"},
	{"牡丹芙蓉", ji, "fame and wealth"},
	{"衰败", xiong, "gradual decline"},
	{"舟归平海", ji, "all things go smoothly"},
	{"非命", xiong, "misfortune and hardship"},
	{"巨流归海", ji, "health and long life"},
	{"岩头步马", xiong, "progress blocked"},
	{"顺风通达", ji, "everything goes as planned"},
	{"顺风吹帆", ji, "wisdom and prosperity"},
	{"非业", xiong, "instability and anxiety"},
	{"残菊逢霜", xiong, "sorrow and loss"},
	{"石上金花", banji, "steady but modest"},
	{"劳苦", xiong, "toil without ease"},
	{"无勇", banji, "contentment in small things"},
	{"残菊经霜", xiong, "idleness and hardship"},
	{"退守", banji, "keep to what is held"},
	{"离散", xiong, "separation of kin"},
	{"半吉", banji, "good and bad in equal measure"},
	{"晚苦", banji, "early success, later struggle"},
	{"云头望月", xiong, "lack of resolve"},
	{"遁吉", xiong, "hardship, seek refuge"},
	{"万物回春", ji, "return to the beginning, renewed prosperity"},
}
