package ats

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// 解压后的文档和提取出的文本都有上限，压缩包本身的大小限制挡不住高压缩比文件
const (
	MaxDocumentXMLBytes = 4 << 20
	MaxTextBytes        = 256 << 10
	MaxPDFPages         = 50
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrDocumentTooLarge  = errors.New("document content exceeds the extraction limit, text was truncated")
)

// textBudget 超出预算后丢弃后续写入
type textBudget struct {
	sb        strings.Builder
	max       int
	truncated bool
}

func newTextBudget(max int) *textBudget {
	return &textBudget{max: max}
}

func (b *textBudget) WriteString(s string) {
	if b.truncated {
		return
	}
	if remain := b.max - b.sb.Len(); len(s) > remain {
		// 按 rune 边界截断
		cut := remain
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
		b.truncated = true
	}
	b.sb.WriteString(s)
}

func (b *textBudget) Full() bool {
	return b.truncated
}

func (b *textBudget) String() string {
	return b.sb.String()
}

// Parser 将文件内容转换为结构化简历；出错时允许返回部分结果
type Parser interface {
	Parse(ctx context.Context, data []byte, mimeType string) (*ParsedResume, error)
}

// DocumentParser 支持 PDF 和 DOCX
type DocumentParser struct{}

func NewDocumentParser() *DocumentParser {
	return &DocumentParser{}
}

// Parse 提取文本后做结构化，提取失败返回空结构和错误
func (p *DocumentParser) Parse(ctx context.Context, data []byte, mimeType string) (*ParsedResume, error) {
	if err := ctx.Err(); err != nil {
		return ParseText(""), err
	}

	var (
		text string
		err  error
	)
	switch mimeType {
	case MimePDF:
		text, err = extractPDFText(ctx, data)
	case MimeDOCX:
		text, err = extractDOCXText(ctx, data)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	return ParseText(text), err
}

func extractPDFText(ctx context.Context, data []byte) (text string, err error) {
	// 损坏的 PDF 会让底层库 panic
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	out := newTextBudget(MaxTextBytes)
	pages := r.NumPage()
	if pages > MaxPDFPages {
		pages = MaxPDFPages
	}
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return out.String(), err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return out.String(), fmt.Errorf("failed to read page %d: %w", i, err)
		}
		for _, row := range rows {
			for _, word := range row.Content {
				out.WriteString(word.S)
			}
			out.WriteString("\n")
			if out.Full() {
				return out.String(), ErrDocumentTooLarge
			}
		}
	}
	if r.NumPage() > MaxPDFPages {
		return out.String(), ErrDocumentTooLarge
	}

	return out.String(), nil
}

func extractDOCXText(ctx context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", errors.New("docx missing word/document.xml")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	// 声明的解压大小可以伪造，实际读取量同样受限
	oversized := doc.UncompressedSize64 > MaxDocumentXMLBytes
	limited := &io.LimitedReader{R: rc, N: MaxDocumentXMLBytes}

	out := newTextBudget(MaxTextBytes)
	var (
		para     strings.Builder
		inText   bool
		isBullet bool
	)
	// 截断时保留尚未结束的段落
	truncated := func() (string, error) {
		out.WriteString(strings.TrimSpace(para.String()))
		return out.String(), ErrDocumentTooLarge
	}

	decoder := xml.NewDecoder(limited)
	for {
		if out.Full() {
			return out.String(), ErrDocumentTooLarge
		}
		tok, err := decoder.Token()
		if err == io.EOF {
			if oversized || limited.N <= 0 {
				return truncated()
			}
			break
		}
		if err != nil {
			if limited.N <= 0 {
				return truncated()
			}
			return out.String(), fmt.Errorf("failed to decode docx: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return out.String(), err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteString("\t")
			case "numPr":
				isBullet = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				line := strings.TrimSpace(para.String())
				if line != "" {
					if isBullet {
						out.WriteString("• ")
					}
					out.WriteString(line)
				}
				out.WriteString("\n")
				para.Reset()
				isBullet = false
			}
		case xml.CharData:
			// 单个段落也不能超过文本预算
			if inText && para.Len() < MaxTextBytes {
				para.Write(t)
			}
		}
	}

	return out.String(), nil
}

var (
	emailPattern    = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern    = regexp.MustCompile(`\+?\d[\d\s().\-]{7,}\d`)
	linkedInPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?linkedin\.com/in/[A-Za-z0-9_\-]+`)
	websitePattern  = regexp.MustCompile(`(?i)https?://[^\s,;]+`)
	sentenceSplit   = regexp.MustCompile(`[.!?]+(?:\s|$)`)
	digitPattern    = regexp.MustCompile(`\d`)
	bulletPrefixes  = []string{"•", "-", "*", "–", "▪", "◦", "●", "‣"}
	orderedBullet   = regexp.MustCompile(`^\d{1,2}[.)]\s`)
)

// ParseText 从纯文本构建结构化简历
func ParseText(text string) *ParsedResume {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parsed := &ParsedResume{
		Text:     text,
		Sections: []Section{},
		Bullets:  []string{},
		Skills:   []string{},
	}
	if strings.TrimSpace(text) == "" {
		return parsed
	}

	parsed.Contact = extractContact(text)

	var current *Section
	var body strings.Builder
	flush := func() {
		if current != nil {
			current.Content = strings.TrimSpace(body.String())
			parsed.Sections = append(parsed.Sections, *current)
		}
		body.Reset()
	}

	stats := &parsed.Stats
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		stats.Lines++
		if len([]rune(line)) > 200 {
			stats.LongLines++
		}
		if strings.Count(line, "|") >= 2 || strings.Count(raw, "\t") >= 2 {
			stats.TableLines++
		}

		if name, ok := sectionName(line); ok {
			flush()
			current = &Section{Name: name, Heading: line}
			continue
		}

		if bullet, ok := stripBullet(line); ok {
			stats.BulletLines++
			parsed.Bullets = append(parsed.Bullets, bullet)
		}

		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	seen := make(map[string]struct{})
	for _, tok := range tokenize(text) {
		stats.Words++
		if IsSkill(tok.norm) {
			if _, dup := seen[tok.norm]; !dup {
				seen[tok.norm] = struct{}{}
				parsed.Skills = append(parsed.Skills, tok.norm)
			}
		}
	}

	var sentenceWords int
	for _, sentence := range splitSentences(text) {
		n := len(strings.Fields(sentence))
		if n == 0 {
			continue
		}
		stats.Sentences++
		sentenceWords += n
		if n > 30 {
			stats.LongSentences++
		}
		if digitPattern.MatchString(sentence) {
			stats.Quantified++
		}
	}
	if stats.Sentences > 0 {
		stats.AvgSentence = float64(sentenceWords) / float64(stats.Sentences)
	}

	return parsed
}

func extractContact(text string) ContactInfo {
	var c ContactInfo
	c.Email = emailPattern.FindString(text)
	c.LinkedIn = linkedInPattern.FindString(text)
	for _, candidate := range phonePattern.FindAllString(text, -1) {
		digits := 0
		for _, r := range candidate {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits >= 8 && digits <= 15 {
			c.Phone = strings.TrimSpace(candidate)
			break
		}
	}
	for _, url := range websitePattern.FindAllString(text, -1) {
		if !strings.Contains(strings.ToLower(url), "linkedin.com") {
			c.Website = url
			break
		}
	}
	return c
}

func sectionName(line string) (string, bool) {
	if len(strings.Fields(line)) > 4 {
		return "", false
	}
	key := strings.ToLower(strings.Trim(line, " :-_*#\t"))
	name, ok := sectionAliases[key]
	return name, ok
}

func stripBullet(line string) (string, bool) {
	for _, prefix := range bulletPrefixes {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	if loc := orderedBullet.FindStringIndex(line); loc != nil {
		return strings.TrimSpace(line[loc[1]:]), true
	}
	return "", false
}

// splitSentences 按标点和换行切分；简历里一行一条经历也视作一句
func splitSentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, s := range sentenceSplit.Split(line, -1) {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
