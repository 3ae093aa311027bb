// Package prompt 는 YAML 프롬프트 묶음을 읽고 {key} 템플릿을 채운다.
package prompt

import (
	"fmt"
	"io/fs"
	"maps"
	"slices"
)

// Bundle 은 한 디렉터리의 프롬프트 파일 모음이다. 파일명이 섹션 이름이 된다.
type Bundle struct {
	label    string
	sections map[string]Section
}

// LoadBundle 은 fsys 의 dir 에서 YAML 파일을 모두 읽는다. 파일이 없으면 에러다.
func LoadBundle(fsys fs.FS, dir string, label string) (*Bundle, error) {
	sections, err := loadSections(fsys, dir)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("%s prompts: no yaml files in %s", label, dir)
	}
	return &Bundle{label: label, sections: sections}, nil
}

// Names 는 섹션 이름을 정렬해 반환한다.
func (b *Bundle) Names() []string {
	if b == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(b.sections))
}

// Section 은 이름으로 섹션을 찾는다.
func (b *Bundle) Section(name string) (Section, error) {
	if b == nil {
		return nil, fmt.Errorf("prompts not initialized")
	}
	section, ok := b.sections[name]
	if !ok {
		return nil, fmt.Errorf("%s prompts: section not found: %s", b.label, name)
	}
	return section, nil
}

// Field 는 섹션 name 의 key 값을 반환한다.
func (b *Bundle) Field(name, key string) (string, error) {
	section, err := b.Section(name)
	if err != nil {
		return "", err
	}
	value, ok := section[key]
	if !ok {
		return "", fmt.Errorf("%s prompts: field missing: %s.%s", b.label, name, key)
	}
	return value, nil
}
