package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quiz-poll-bot/internal/domain"

	"gopkg.in/yaml.v3"
)

// QuestionSource reads questions from a JSON or YAML file, picked by extension.
// Both formats hold a list of {question, options, correct_answer} records.
type QuestionSource struct {
	path string
}

func NewQuestionSource(path string) *QuestionSource {
	return &QuestionSource{path: path}
}

func (s *QuestionSource) LoadQuestions(_ context.Context) ([]domain.Question, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	return Decode(filepath.Ext(s.path), data)
}

// record mirrors the file layout; pointers tell a missing field from a zero value.
type record struct {
	Question      *string  `json:"question" yaml:"question"`
	Options       []string `json:"options" yaml:"options"`
	CorrectAnswer *int     `json:"correct_answer" yaml:"correct_answer"`
}

// Decode parses raw question data; ext selects the format (".json", ".yaml", ".yml").
func Decode(ext string, data []byte) ([]domain.Question, error) {
	var records []record
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, &domain.MalformedDataError{Index: -1, Reason: err.Error()}
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, &domain.MalformedDataError{Index: -1, Reason: err.Error()}
		}
	default:
		return nil, fmt.Errorf("unsupported question file type %q", ext)
	}

	questions := make([]domain.Question, 0, len(records))
	for i, r := range records {
		switch {
		case r.Question == nil:
			return nil, &domain.MalformedDataError{Index: i, Reason: "missing question"}
		case r.Options == nil:
			return nil, &domain.MalformedDataError{Index: i, Reason: "missing options"}
		case r.CorrectAnswer == nil:
			return nil, &domain.MalformedDataError{Index: i, Reason: "missing correct_answer"}
		}
		questions = append(questions, domain.Question{
			Text:         *r.Question,
			Options:      r.Options,
			CorrectIndex: *r.CorrectAnswer,
		})
	}
	return questions, nil
}
