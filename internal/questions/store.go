package questions

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// Store reads and writes question files, one question per line.
type Store struct {
	Dir string
}

// NewStore creates the output directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create question dir: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// Write writes questions to the named file, one per line.
func (s *Store) Write(filename string, questions []string) error {
	f, err := os.Create(filepath.Join(s.Dir, filename))
	if err != nil {
		return fmt.Errorf("create question file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, q := range questions {
		if _, err := fmt.Fprintln(w, q); err != nil {
			return fmt.Errorf("write question: %w", err)
		}
	}
	return w.Flush()
}

// Read loads questions from the named file, skipping empty lines.
func (s *Store) Read(filename string) ([]string, error) {
	return ReadFile(filepath.Join(s.Dir, filename))
}

// ReadFile loads questions from an arbitrary path, skipping empty lines.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open question file: %w", err)
	}
	defer f.Close()

	var questions []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if q := strings.TrimSpace(sc.Text()); q != "" {
			questions = append(questions, q)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	return questions, nil
}

// Split shuffles the questions in the named file and writes _train and _test
// files by the given ratio, removing the original. Returns the new file names.
func (s *Store) Split(filename string, trainRatio float64, seed int64) (string, string, error) {
	questions, err := s.Read(filename)
	if err != nil {
		return "", "", err
	}

	shuffled := make([]string, len(questions))
	copy(shuffled, questions)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	splitIdx := int(float64(len(shuffled)) * trainRatio)
	trainFile := strings.Replace(filename, ".txt", "_train.txt", 1)
	testFile := strings.Replace(filename, ".txt", "_test.txt", 1)

	if err := s.Write(trainFile, shuffled[:splitIdx]); err != nil {
		return "", "", err
	}
	if err := s.Write(testFile, shuffled[splitIdx:]); err != nil {
		return "", "", err
	}
	if err := os.Remove(filepath.Join(s.Dir, filename)); err != nil {
		return "", "", fmt.Errorf("remove original question file: %w", err)
	}
	return trainFile, testFile, nil
}
