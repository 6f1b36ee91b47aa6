// Package saveinfo summarises decoded save documents.
package saveinfo

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/sharkusmanch/gd-backups/internal/domain"
)

// Save documents are plists of alternating <k> keys and typed values,
// so every lookup selects the first element after a matching key.
var (
	starCountExpr    = xpath.MustCompile(`//k[normalize-space()="GS_value"]/following-sibling::d[1]/k[normalize-space()="6"]/following-sibling::*[1]`)
	playerFrameExpr  = xpath.MustCompile(`//k[normalize-space()="playerFrame"]/following-sibling::*[1]`)
	playerColorExpr  = xpath.MustCompile(`//k[normalize-space()="playerColor"]/following-sibling::*[1]`)
	playerColor2Expr = xpath.MustCompile(`//k[normalize-space()="playerColor2"]/following-sibling::*[1]`)
	playerColor3Expr = xpath.MustCompile(`//k[normalize-space()="playerColor3"]/following-sibling::*[1]`)
	playerGlowExpr   = xpath.MustCompile(`//k[normalize-space()="playerGlow"]/following-sibling::*[1]`)
	levelNameExpr    = xpath.MustCompile(`//k[normalize-space()="LLM_01"]/following-sibling::d[1]/d/k[normalize-space()="k2"]/following-sibling::*[1]`)
)

// Extract builds a BackupInfo from the game manager and local levels documents.
// Either document may be empty or malformed; missing values default to zero.
func Extract(gameManagerXML, localLevelsXML string) domain.BackupInfo {
	info := domain.BackupInfo{
		LevelNames: []string{},
	}

	if doc := parse(gameManagerXML); doc != nil {
		extractPlayer(doc, &info)
	}

	if doc := parse(localLevelsXML); doc != nil {
		info.LevelNames = LevelNames(doc)
	}

	return info
}

func extractPlayer(doc *xmlquery.Node, info *domain.BackupInfo) {
	info.StarCount = intValue(doc, starCountExpr)
	info.PlayerIcon = intValue(doc, playerFrameExpr)
	info.PlayerColor1 = intValue(doc, playerColorExpr)
	info.PlayerColor2 = intValue(doc, playerColor2Expr)

	glow := xmlquery.QuerySelector(doc, playerGlowExpr)
	if glow == nil || glow.Data != "t" {
		return
	}

	// Older saves have no dedicated glow color and reuse the secondary one.
	color := info.PlayerColor2
	if n := xmlquery.QuerySelector(doc, playerColor3Expr); n != nil {
		color = atoi(n.InnerText())
	}
	info.PlayerGlowColor = &color
}

// LevelNames returns the names of all local levels in document order.
func LevelNames(doc *xmlquery.Node) []string {
	nodes := xmlquery.QuerySelectorAll(doc, levelNameExpr)
	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.InnerText())
	}
	return names
}

func parse(text string) *xmlquery.Node {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	doc, err := xmlquery.Parse(strings.NewReader(text))
	if err != nil {
		return nil
	}
	return doc
}

func intValue(doc *xmlquery.Node, expr *xpath.Expr) int {
	n := xmlquery.QuerySelector(doc, expr)
	if n == nil {
		return 0
	}
	return atoi(n.InnerText())
}

func atoi(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
