package literals

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-enry/go-enry/v2"
)

// Language is a source language whose test files can hold inline snapshots.
type Language int

const (
	JavaPre15 Language = iota
	Java
	Kotlin
	Groovy
	Scala
)

func (l Language) String() string {
	switch l {
	case JavaPre15:
		return "java_pre15"
	case Java:
		return "java"
	case Kotlin:
		return "kotlin"
	case Groovy:
		return "groovy"
	case Scala:
		return "scala"
	default:
		return fmt.Sprintf("language(%d)", int(l))
	}
}

// Lexer returns the syntax highlighter name for the language.
func (l Language) Lexer() string {
	if l == JavaPre15 {
		return "java"
	}
	return l.String()
}

var byLinguistName = map[string]Language{
	"Java":   Java,
	"Kotlin": Kotlin,
	"Groovy": Groovy,
	"Scala":  Scala,
}

// extensions the linguist table does not map to a JVM language
var fallbackExtensions = map[string]Language{
	".gy": Groovy,
	".sc": Scala,
}

// LanguageFromFilename resolves the language from the file extension. Java sources are
// treated as JavaPre15 when javaVersion is below 15, which disables text blocks.
func LanguageFromFilename(filename string, javaVersion int) (Language, error) {
	candidates := enry.GetLanguagesByExtension(filename, nil, nil)
	names := make([]string, 0, len(byLinguistName))
	for name := range byLinguistName {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if slices.Contains(candidates, name) {
			return adjustJava(byLinguistName[name], javaVersion), nil
		}
	}
	if language, ok := fallbackExtensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return language, nil
	}
	return 0, fmt.Errorf("unknown language for file %s", filename)
}

func adjustJava(language Language, javaVersion int) Language {
	if language == Java && javaVersion < 15 {
		return JavaPre15
	}
	return language
}
