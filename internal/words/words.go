package words

import (
	"bufio"
	"errors"
	"math/rand"
	"os"
	"regexp"
	"strings"
)

// ErrEmptyWordList 词库为空。启动前置条件，调用方应直接退出
var ErrEmptyWordList = errors.New("words: word list is empty")

var alphanumeric = regexp.MustCompile(`[a-zA-Z0-9]`)

// Source 预加载的词库
type Source struct {
	words []string
}

// Load 从文件加载词库，每行一个词
func Load(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var list []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" {
			list = append(list, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return New(list)
}

// New 从给定列表创建词库
func New(list []string) (*Source, error) {
	if len(list) == 0 {
		return nil, ErrEmptyWordList
	}
	return &Source{words: list}, nil
}

// RandomWord 均匀随机取一个词
func (s *Source) RandomWord() string {
	return s.words[rand.Intn(len(s.words))]
}

// RandomWords 取 n 个互不相同的词。n 很小（通常为 3），重复采样即可
func (s *Source) RandomWords(n int) []string {
	if n > len(s.words) {
		n = len(s.words)
	}

	result := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for len(result) < n {
		word := s.RandomWord()
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		result = append(result, word)
	}
	return result
}

// MaskAsUnderscores 把词里的字母数字替换为 "_ "，保留其余字符，
// 给猜词玩家保留词长和空格线索。例: "apple juice" -> "_ _ _ _ _  _ _ _ _ _"
func MaskAsUnderscores(word string) string {
	return strings.TrimSpace(alphanumeric.ReplaceAllString(word, "_ "))
}
