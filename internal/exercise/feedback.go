package exercise

import "fmt"

// Locale selects the feedback language.
type Locale string

const (
	LocaleEnglish Locale = "en"
	LocaleThai    Locale = "th"
)

type msgKey int

const (
	msgInvalidArm msgKey = iota
	msgInvalidLeg
	msgInvalidTrunk
	msgInvalidHead
	msgUnsupported
	msgCooldown
	msgComplete
	msgRepDone

	msgArmReady
	msgArmRaising
	msgArmKeepRaising
	msgArmHoldStart
	msgArmHolding
	msgArmLower
	msgArmDone

	msgLegReady
	msgLegSit
	msgLegExtending
	msgLegKeepExtending
	msgLegHoldStart
	msgLegReextend
	msgLegFlex
	msgLegReturn

	msgSwayReady
	msgSwaying
	msgSwayKeep
	msgSwayHoldStart
	msgSwayReach
	msgUpright
	msgReturnSlowly

	msgGuideReach
	msgGuideLeanMore
	msgGuideHit
	msgGuideReturn
	msgGuideReady

	msgTiltReady
	msgTilting
	msgTiltKeep
	msgTiltHoldStart
	msgTiltReach
	msgTiltHit
	msgTiltReturn
	msgTiltCentre

	msgHoldRemaining
)

var messages = map[Locale]map[msgKey]string{
	LocaleEnglish: {
		msgInvalidArm:   "Cannot see your arms clearly, please adjust your position",
		msgInvalidLeg:   "Cannot see your legs clearly, please adjust your position",
		msgInvalidTrunk: "Cannot see your shoulders and hips, please adjust your position",
		msgInvalidHead:  "Cannot see your ears, please face the camera",
		msgUnsupported:  "Exercise %s is not supported",
		msgCooldown:     "Well done! Get ready for the next one",
		msgComplete:     "Exercise complete, great work!",
		msgRepDone:      "Success! Rep %d/%d",

		msgArmReady:       "Raise your %s arm (%d/%d)",
		msgArmRaising:     "Raising your %s arm forward...",
		msgArmKeepRaising: "Keep raising your %s arm... %d%%",
		msgArmHoldStart:   "Good %s arm raise! Hold, then lower",
		msgArmHolding:     "Hold your %s arm... %ds",
		msgArmLower:       "Lower your %s arm back...",
		msgArmDone:        "Completed %s arm raise! (%d/%d)",

		msgLegReady:         "Good sitting posture! Get ready to extend (rep %d/%d)",
		msgLegSit:           "Sit comfortably before extending your knee",
		msgLegExtending:     "Extending your knee... keep going",
		msgLegKeepExtending: "Keep extending... target: %d° current: %d°",
		msgLegHoldStart:     "Good extension! Hold for %d seconds",
		msgLegReextend:      "Straighten your knee as far as you can",
		msgLegFlex:          "Excellent! Bend your knee back",
		msgLegReturn:        "Bend your knee back to a normal sitting position",

		msgSwayReady:     "Good upright posture! Get ready to sway (rep %d/%d)",
		msgSwaying:       "Swaying... keep going",
		msgSwayKeep:      "Keep swaying... target: %d° current: %d°",
		msgSwayHoldStart: "Good sway! Hold for %d seconds",
		msgSwayReach:     "Sway far enough to reach the target",
		msgUpright:       "Excellent! Return to upright",
		msgReturnSlowly:  "Return to upright slowly",

		msgGuideReach:    "Lean left or right to reach a guide line",
		msgGuideLeanMore: "Lean further %s (%d%%)",
		msgGuideHit:      "Lean %s reached!",
		msgGuideReturn:   "Still leaning %s, return to the centre first",
		msgGuideReady:    "Back in the centre, ready for the next lean",

		msgTiltReady:     "Good upright head! Get ready to tilt (rep %d/%d)",
		msgTilting:       "Tilting your head... keep going",
		msgTiltKeep:      "Keep tilting... target: %d° current: %d°",
		msgTiltHoldStart: "Good tilt! Hold for %d seconds",
		msgTiltReach:     "Tilt far enough to reach the target",
		msgTiltHit:       "Head tilt %s reached!",
		msgTiltReturn:    "Still tilting %s, return to the centre first",
		msgTiltCentre:    "Back to the centre",

		msgHoldRemaining: "Hold it... %d seconds left",
	},
	LocaleThai: {
		msgInvalidArm:   "ไม่สามารถตรวจจับแขนได้ชัดเจน กรุณาปรับตำแหน่ง",
		msgInvalidLeg:   "ไม่สามารถตรวจจับขาได้ชัดเจน กรุณาปรับตำแหน่ง",
		msgInvalidTrunk: "ไม่สามารถตรวจจับไหล่และสะโพกได้ชัดเจน กรุณาปรับตำแหน่ง",
		msgInvalidHead:  "ไม่สามารถตรวจจับหูได้ชัดเจน กรุณาหันหน้าเข้ากล้อง",
		msgUnsupported:  "ไม่รองรับท่า: %s",
		msgCooldown:     "ทำได้ดี! เตรียมพร้อมสำหรับครั้งถัดไป",
		msgComplete:     "ออกกำลังกายครบแล้ว เยี่ยมมาก!",
		msgRepDone:      "สำเร็จ! ครั้งที่ %d/%d",

		msgArmReady:       "ยกแขน%s (%d/%d)",
		msgArmRaising:     "กำลังยกแขน%sไปข้างหน้า...",
		msgArmKeepRaising: "ยกแขน%sต่อไป... %d%%",
		msgArmHoldStart:   "ยกแขน%sได้ดี! ค้างท่าแล้วลงแขน",
		msgArmHolding:     "ค้างท่ายกแขน%s... %ds",
		msgArmLower:       "ลงแขน%sกลับ...",
		msgArmDone:        "ทำท่ายกแขน%sสำเร็จ! (%d/%d)",

		msgLegReady:         "ท่านั่งดี! เตรียมเหยียดเข่า (ครั้งที่ %d/%d)",
		msgLegSit:           "นั่งในท่าที่สะดวก ก่อนเหยียดเข่า",
		msgLegExtending:     "กำลังเหยียดเข่า... เหยียดต่อไป",
		msgLegKeepExtending: "เหยียดเข่าต่อไป... เป้าหมาย: %d° ปัจจุบัน: %d°",
		msgLegHoldStart:     "เหยียดเข่าได้ดี! คงท่าไว้ %d วินาที",
		msgLegReextend:      "เหยียดเข่าให้ตรงที่สุด",
		msgLegFlex:          "เยี่ยม! งอเข่ากลับสู่ท่าเดิม",
		msgLegReturn:        "งอเข่ากลับสู่ท่านั่งปกติ",

		msgSwayReady:     "ท่าตรงดี! เตรียมโยกลำตัว (ครั้งที่ %d/%d)",
		msgSwaying:       "กำลังโยกลำตัว... โยกต่อไป",
		msgSwayKeep:      "โยกลำตัวต่อไป... เป้าหมาย: %d° ปัจจุบัน: %d°",
		msgSwayHoldStart: "โยกลำตัวได้ดี! คงท่าไว้ %d วินาที",
		msgSwayReach:     "โยกลำตัวให้ถึงเป้าหมาย",
		msgUpright:       "เยี่ยม! กลับสู่ท่าตรง",
		msgReturnSlowly:  "กลับสู่ท่าตรงช้าๆ",

		msgGuideReach:    "เอนตัวไปทางซ้ายหรือขวาให้ถึงเส้นนำ",
		msgGuideLeanMore: "เอนไปทาง%sอีก (%d%%)",
		msgGuideHit:      "เอนไปทาง%sถึงเส้นแล้ว!",
		msgGuideReturn:   "ยังเอนไปทาง%s กรุณากลับมาตรงกลางก่อน",
		msgGuideReady:    "กลับมาตรงกลางแล้ว พร้อมเอนครั้งถัดไป",

		msgTiltReady:     "ท่าตรงดี! เตรียมเอียงศีรษะ (ครั้งที่ %d/%d)",
		msgTilting:       "กำลังเอียงศีรษะ... เอียงต่อไป",
		msgTiltKeep:      "เอียงศีรษะต่อไป... เป้าหมาย: %d° ปัจจุบัน: %d°",
		msgTiltHoldStart: "เอียงศีรษะได้ดี! คงท่าไว้ %d วินาที",
		msgTiltReach:     "เอียงศีรษะให้ถึงเป้าหมาย",
		msgTiltHit:       "เอียงศีรษะไปทาง%sสำเร็จ!",
		msgTiltReturn:    "ยังเอียงไปทาง%s กรุณากลับมาตรงกลางก่อน",
		msgTiltCentre:    "กลับมาตรงกลางแล้ว",

		msgHoldRemaining: "คงท่าไว้... เหลือ %d วินาที",
	},
}

var sideNames = map[Locale]map[Side]string{
	LocaleEnglish: {SideLeft: "left", SideRight: "right"},
	LocaleThai:    {SideLeft: "ซ้าย", SideRight: "ขวา"},
}

// ParseLocale maps a config value to a Locale, defaulting to English.
func ParseLocale(s string) (Locale, error) {
	switch Locale(s) {
	case "", LocaleEnglish:
		return LocaleEnglish, nil
	case LocaleThai:
		return LocaleThai, nil
	}
	return "", fmt.Errorf("unsupported locale %q", s)
}

func (l Locale) format(key msgKey, args ...any) string {
	tmpl, ok := messages[l][key]
	if !ok {
		tmpl = messages[LocaleEnglish][key]
	}
	if len(args) == 0 {
		return tmpl
	}
	return fmt.Sprintf(tmpl, args...)
}

func (l Locale) side(s Side) string {
	if n, ok := sideNames[l][s]; ok {
		return n
	}
	return string(s)
}
