package encoding

// pdfDocEncoding maps PDFDocEncoding bytes to runes (ISO 32000-1, Annex D.2).
var pdfDocEncoding [256]rune

func init() {
	for i := range pdfDocEncoding {
		pdfDocEncoding[i] = rune(i)
	}
	for i := 0x00; i < 0x18; i++ {
		switch i {
		case '\t', '\n', '\r':
		default:
			pdfDocEncoding[i] = NoRune
		}
	}
	copy(pdfDocEncoding[0x18:0x20], []rune{
		'˘', 'ˇ', 'ˆ', '˙', '˝', '˛', '˚', '˜',
	})
	pdfDocEncoding[0x7f] = NoRune
	copy(pdfDocEncoding[0x80:0xa1], []rune{
		'•', '†', '‡', '…', '—', '–', 'ƒ', '⁄',
		'‹', '›', '−', '‰', '„', '“', '”', '‘',
		'’', '‚', '™', 'ﬁ', 'ﬂ', 'Ł', 'Œ', 'Š',
		'Ÿ', 'Ž', 'ı', 'ł', 'œ', 'š', 'ž', NoRune,
		'€',
	})
	pdfDocEncoding[0xad] = NoRune
}
