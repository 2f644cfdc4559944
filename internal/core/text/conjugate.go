package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var irregularPast = map[string]string{
	"arise": "arose", "awake": "awoke", "be": "was", "bear": "bore", "beat": "beat",
	"become": "became", "begin": "began", "bend": "bent", "bet": "bet", "bind": "bound",
	"bite": "bitten", "bleed": "bled", "blow": "blew", "break": "broke", "breed": "bred",
	"bring": "brought", "build": "built", "burn": "burnt", "burst": "burst", "buy": "bought",
	"catch": "caught", "choose": "chose", "come": "came", "cost": "cost", "creep": "crept",
	"cut": "cut", "deal": "dealt", "dig": "dug", "do": "did", "draw": "drew",
	"dream": "dreamt", "drink": "drank", "drive": "drove", "eat": "ate", "fall": "fell",
	"feed": "fed", "feel": "felt", "fight": "fought", "find": "found", "flee": "fled",
	"fly": "flew", "forbid": "forbade", "forget": "forgot", "forgive": "forgave",
	"found": "founded", "freeze": "froze", "get": "got", "give": "gave", "go": "went",
	"grind": "ground", "grow": "grew", "hang": "hung", "have": "had", "hear": "heard",
	"hide": "hid", "hit": "hit", "hold": "held", "hurt": "hurt", "keep": "kept",
	"kneel": "knelt", "know": "knew", "lay": "laid", "lead": "led", "leap": "leapt",
	"learn": "learnt", "leave": "left", "lend": "lent", "let": "let", "lie": "lay",
	"light": "lit", "lose": "lost", "make": "made", "mean": "meant", "meet": "met",
	"pay": "paid", "put": "put", "quit": "quit", "read": "read", "ride": "rode",
	"ring": "rang", "rise": "rose", "run": "ran", "say": "said", "see": "saw",
	"seek": "sought", "sell": "sold", "send": "sent", "set": "set", "shake": "shook",
	"shine": "shone", "shoot": "shot", "show": "showed", "shrink": "shrank",
	"shut": "shut", "sing": "sang", "sink": "sank", "sit": "sat", "sleep": "slept",
	"slide": "slid", "speak": "spoke", "speed": "sped", "spend": "spent", "spin": "spun",
	"split": "split", "spread": "spread", "spring": "sprang", "stand": "stood",
	"steal": "stole", "stick": "stuck", "sting": "stung", "strike": "struck",
	"swear": "swore", "sweep": "swept", "swim": "swam", "swing": "swung", "take": "took",
	"teach": "taught", "tear": "tore", "tell": "told", "think": "thought",
	"throw": "threw", "understand": "understood", "wake": "woke", "wear": "wore",
	"weep": "wept", "win": "won", "wind": "wound", "write": "wrote",
}

var irregularBase = map[string]string{
	"is": "be", "am": "be", "are": "be", "has": "have", "does": "do", "goes": "go",
}

// Base forms that end in "ed" but are not past forms.
var eedVerbs = map[string]struct{}{
	"need": {}, "proceed": {}, "succeed": {}, "exceed": {}, "seed": {}, "heed": {},
}

var pastForms = func() map[string]struct{} {
	out := make(map[string]struct{}, len(irregularPast)+8)
	for base, past := range irregularPast {
		if base == "found" {
			continue
		}
		out[past] = struct{}{}
	}
	for _, w := range []string{"was", "were", "been", "gone", "done", "written", "taken", "given", "seen", "known", "born"} {
		out[w] = struct{}{}
	}
	return out
}()

// PastTense conjugates an English verb form to the simple past. Capitalization
// of the first letter is preserved. Words already in a past form are returned
// unchanged.
func PastTense(verb string) string {
	if verb == "" {
		return verb
	}
	lower := strings.ToLower(verb)
	past := pastOf(lower)
	first, _ := utf8.DecodeRuneInString(verb)
	if unicode.IsUpper(first) {
		r, size := utf8.DecodeRuneInString(past)
		past = string(unicode.ToUpper(r)) + past[size:]
	}
	return past
}

func pastOf(word string) string {
	if past, ok := irregularPast[word]; ok {
		return past
	}
	if _, ok := pastForms[word]; ok {
		return word
	}
	if _, ok := eedVerbs[word]; !ok && strings.HasSuffix(word, "ed") && len(word) > 3 {
		return word
	}
	base := lemma(word)
	if past, ok := irregularPast[base]; ok {
		return past
	}
	return regularPast(base)
}

func lemma(word string) string {
	if base, ok := irregularBase[word]; ok {
		return base
	}
	switch {
	case strings.HasSuffix(word, "ing") && len(word) > 5:
		stem := strings.TrimSuffix(word, "ing")
		if n := len(stem); n >= 2 && stem[n-1] == stem[n-2] && !isVowel(stem[n-1]) && stem[n-1] != 'l' && stem[n-1] != 's' {
			return stem[:n-1]
		}
		if _, ok := irregularPast[stem+"e"]; ok {
			return stem + "e"
		}
		if needsSilentE(stem) {
			return stem + "e"
		}
		return stem
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return strings.TrimSuffix(word, "ies") + "y"
	case strings.HasSuffix(word, "sses"), strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "ches"), strings.HasSuffix(word, "xes"), strings.HasSuffix(word, "zes"):
		return strings.TrimSuffix(word, "es")
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") && len(word) > 3:
		return strings.TrimSuffix(word, "s")
	}
	return word
}

func regularPast(base string) string {
	n := len(base)
	switch {
	case n == 0:
		return base
	case base[n-1] == 'e':
		return base + "d"
	case n >= 2 && base[n-1] == 'y' && !isVowel(base[n-2]):
		return base[:n-1] + "ied"
	case shouldDouble(base):
		return base + base[n-1:] + "ed"
	default:
		return base + "ed"
	}
}

// shouldDouble covers short consonant-vowel-consonant verbs like stop or plan.
func shouldDouble(base string) bool {
	n := len(base)
	if n < 3 || n > 4 {
		return false
	}
	last := base[n-1]
	if isVowel(last) || last == 'w' || last == 'x' || last == 'y' {
		return false
	}
	if !isVowel(base[n-2]) || isVowel(base[n-3]) {
		return false
	}
	vowels := 0
	for i := 0; i < n; i++ {
		if isVowel(base[i]) {
			vowels++
		}
	}
	return vowels == 1
}

// needsSilentE restores the final e dropped by -ing, e.g. "moving" -> "move".
func needsSilentE(stem string) bool {
	n := len(stem)
	if n < 3 {
		return false
	}
	switch stem[n-1] {
	case 'v', 'c', 'z':
		return true
	}
	return false
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
