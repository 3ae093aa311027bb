package prompt

import (
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Section 은 YAML 파일 하나의 최상위 키-문자열 맵이다.
type Section map[string]string

// loadSection 은 스칼라 값만 허용한다. system 또는 *_system 키는 치환 변수를 쓸 수 없다.
func loadSection(fsys fs.FS, filePath string) (Section, error) {
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompt yaml %s: %w", filePath, err)
	}

	section := make(Section, len(raw))
	for key, node := range raw {
		switch {
		case node.Kind != yaml.ScalarNode:
			return nil, fmt.Errorf("%s:%s: prompt value must be a string", filePath, key)
		case node.Tag == "!!null":
			section[key] = ""
		default:
			section[key] = node.Value
		}
		if isSystemKey(key) {
			if err := ValidateSystemStatic(filePath+":"+key, section[key]); err != nil {
				return nil, err
			}
		}
	}
	return section, nil
}

func isSystemKey(key string) bool {
	return key == "system" || strings.HasSuffix(key, "_system")
}

// loadSections 는 dir 의 *.yml, *.yaml 을 파일명(확장자 제외) 기준으로 읽는다.
func loadSections(fsys fs.FS, dir string) (map[string]Section, error) {
	var paths []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := fs.Glob(fsys, path.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("glob prompt dir: %w", err)
		}
		paths = append(paths, matches...)
	}
	slices.Sort(paths)

	sections := make(map[string]Section, len(paths))
	for _, filePath := range paths {
		section, err := loadSection(fsys, filePath)
		if err != nil {
			return nil, err
		}
		sections[strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))] = section
	}
	return sections, nil
}
