package guard

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"gopkg.in/yaml.v3"
)

//go:embed rulepacks/*.yml
var defaultRulepacks embed.FS

const (
	ruleTypeRegex   = "regex"
	ruleTypePhrases = "phrases"
)

// rulepackFile 은 YAML 규칙 묶음 하나다.
//
//	threshold: 0.7
//	rules:
//	  - {id: role_tags, type: regex, pattern: '</?system>', weight: 0.7}
//	  - {id: override, type: phrases, phrases: [...], weight: 0.4}
type rulepackFile struct {
	Threshold float64    `yaml:"threshold"`
	Rules     []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	ID      string   `yaml:"id"`
	Type    string   `yaml:"type"`
	Pattern string   `yaml:"pattern"`
	Phrases []string `yaml:"phrases"`
	Weight  float64  `yaml:"weight"`
}

type regexRule struct {
	id      string
	pattern *regexp.Regexp
	weight  float64
}

// phraseSet 은 접힌 구문들의 Aho-Corasick 매처다. weights[i] 는 phrases[i] 의 가중치.
type phraseSet struct {
	matcher *ahocorasick.Matcher
	phrases []string
	weights []float64
}

type compiledPack struct {
	name      string
	threshold float64
	regexes   []regexRule
	phrases   phraseSet
}

// score 는 정규식을 후보 텍스트들에, 구문은 접힌 텍스트에 적용한다.
// 규칙 하나는 여러 후보에 맞아도 한 번만 더해진다.
func (p compiledPack) score(candidates []string, folded []byte) (float64, []Match) {
	total := 0.0
	var hits []Match
	for _, rule := range p.regexes {
		if slices.ContainsFunc(candidates, rule.pattern.MatchString) {
			total += rule.weight
			hits = append(hits, Match{ID: rule.id, Weight: rule.weight})
		}
	}
	if p.phrases.matcher == nil {
		return total, hits
	}
	for _, i := range p.phrases.matcher.MatchThreadSafe(folded) {
		if i < 0 || i >= len(p.phrases.phrases) || p.phrases.weights[i] <= 0 {
			continue
		}
		total += p.phrases.weights[i]
		hits = append(hits, Match{ID: "phrase:" + p.phrases.phrases[i], Weight: p.phrases.weights[i]})
	}
	return total, hits
}

func loadDefaultRulepacks(logger *slog.Logger) []compiledPack {
	sub, err := fs.Sub(defaultRulepacks, "rulepacks")
	if err != nil {
		return nil
	}
	return loadRulepacksFS(sub, ".", logger)
}

// loadRulepacks 는 운영자가 둔 디렉터리의 *.yml, *.yaml 을 읽는다.
func loadRulepacks(dir string, logger *slog.Logger) []compiledPack {
	if dir == "" {
		return nil
	}
	packs := loadRulepacksFS(os.DirFS(dir), ".", logger)
	if len(packs) == 0 && logger != nil {
		logger.Warn("rulepacks_not_found", "dir", dir)
	}
	return packs
}

// loadRulepacksFS 는 읽거나 해석할 수 없는 파일을 경고 후 건너뛴다.
func loadRulepacksFS(fsys fs.FS, dir string, logger *slog.Logger) []compiledPack {
	var packs []compiledPack
	for _, name := range rulepackFiles(fsys, dir) {
		pack, err := readRulepack(fsys, name, logger)
		if err != nil {
			if logger != nil {
				logger.Warn("rulepack_load_failed", "path", name, "err", err)
			}
			continue
		}
		packs = append(packs, pack)
	}
	return packs
}

func readRulepack(fsys fs.FS, name string, logger *slog.Logger) (compiledPack, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return compiledPack{}, err
	}
	var file rulepackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return compiledPack{}, fmt.Errorf("parse rulepack: %w", err)
	}
	pack, err := compileRulepack(file, logger)
	if err != nil {
		return compiledPack{}, err
	}
	pack.name = strings.TrimSuffix(path.Base(name), path.Ext(name))
	return pack, nil
}

func rulepackFiles(fsys fs.FS, dir string) []string {
	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, _ := fs.Glob(fsys, path.Join(dir, pattern))
		files = append(files, matches...)
	}
	slices.Sort(files)
	return files
}

func isRulepackFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yml", ".yaml":
		return true
	}
	return false
}

// compileRulepack 은 규칙 구조 오류에는 에러를 내고, 컴파일되지 않는 정규식 하나는 경고 후 건너뛴다.
func compileRulepack(file rulepackFile, logger *slog.Logger) (compiledPack, error) {
	pack := compiledPack{threshold: file.Threshold}
	if pack.threshold <= 0 {
		pack.threshold = defaultThreshold
	}

	index := make(map[string]int)
	for _, rule := range file.Rules {
		if rule.ID == "" {
			return compiledPack{}, errors.New("rule without id")
		}
		switch strings.ToLower(strings.TrimSpace(rule.Type)) {
		case ruleTypeRegex:
			if rule.Pattern == "" {
				return compiledPack{}, fmt.Errorf("rule %s: empty pattern", rule.ID)
			}
			pattern, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				if logger != nil {
					logger.Warn("rulepack_regex_invalid", "rule_id", rule.ID, "err", err)
				}
				continue
			}
			pack.regexes = append(pack.regexes, regexRule{id: rule.ID, pattern: pattern, weight: rule.Weight})
		case ruleTypePhrases:
			if len(rule.Phrases) == 0 {
				return compiledPack{}, fmt.Errorf("rule %s: no phrases", rule.ID)
			}
			for _, phrase := range rule.Phrases {
				pack.phrases.add(foldText(phrase), rule.Weight, index)
			}
		default:
			return compiledPack{}, fmt.Errorf("rule %s: unknown type %q", rule.ID, rule.Type)
		}
	}

	pack.phrases.build()
	return pack, nil
}

// add 는 같은 구문이 다시 나오면 나중 가중치로 덮어쓴다.
func (s *phraseSet) add(phrase string, weight float64, index map[string]int) {
	if phrase == "" {
		return
	}
	if i, ok := index[phrase]; ok {
		s.weights[i] = weight
		return
	}
	index[phrase] = len(s.phrases)
	s.phrases = append(s.phrases, phrase)
	s.weights = append(s.weights, weight)
}

func (s *phraseSet) build() {
	if len(s.phrases) == 0 {
		return
	}
	patterns := make([][]byte, len(s.phrases))
	for i, phrase := range s.phrases {
		patterns[i] = []byte(phrase)
	}
	s.matcher = ahocorasick.NewMatcher(patterns)
}
