// Package docs embeds the documentation topics shown by `tj topic`.
package docs

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strings"
)

//go:embed *.md
var docs embed.FS

// Topic is an entry of the documentation index.
type Topic struct {
	Name    string
	Summary string
}

var topicLine = regexp.MustCompile(`^\*\s+([^:]+):\s*(.*)$`)

// Index returns the topics listed in readme.md, in order.
func Index() ([]Topic, error) {
	content, err := docs.ReadFile("readme.md")
	if err != nil {
		return nil, err
	}
	var topics []Topic
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		if m := topicLine.FindStringSubmatch(scanner.Text()); m != nil {
			topics = append(topics, Topic{Name: strings.TrimSpace(m[1]), Summary: strings.TrimSpace(m[2])})
		}
	}
	return topics, scanner.Err()
}

// Names returns the name of every topic file, readme excluded, sorted.
func Names() ([]string, error) {
	files, err := fs.Glob(docs, "*.md")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range files {
		if name := strings.TrimSuffix(f, ".md"); name != "readme" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Get returns the content of topics. "*" stands for every topic, "" for the readme.
func Get(topics ...string) (string, error) {
	if len(topics) == 0 {
		topics = []string{""}
	}
	var b bytes.Buffer
	for _, topic := range topics {
		names := []string{topic}
		if topic == "*" {
			var err error
			if names, err = Names(); err != nil {
				return "", err
			}
		}
		for _, name := range names {
			if name == "" {
				name = "readme"
			}
			content, err := docs.ReadFile(name + ".md")
			if err != nil {
				return "", fmt.Errorf("topic %q not found", name)
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.Write(content)
		}
	}
	return b.String(), nil
}
