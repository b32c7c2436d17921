package schemas

import (
	"os"
	"path/filepath"

	"github.com/go-errors/errors"
)

// DefaultPath is the directory holding the schema files, relative to the working directory
const DefaultPath = "schemas/mongo"

const (
	CoreSchemaName   = "core"
	ClientSchemaName = "clients"
)

var parsers = []struct {
	extension string
	parse     func([]byte) (any, error)
}{
	{".json", ParseJSON},
	{".yaml", ParseYAML},
	{".yml", ParseYAML},
}

// FileSource reads core.{json,yaml,yml} and clients.{json,yaml,yml} from a directory.
// A missing file means the scope has no schema.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	if path == "" {
		path = DefaultPath
	}
	return &FileSource{path: path}
}

func (s *FileSource) Path() string {
	return s.path
}

// Core returns the core schema: database key -> collection -> indexes
func (s *FileSource) Core() (any, error) {
	return s.load(CoreSchemaName)
}

// Client returns the client schema: collection -> indexes
func (s *FileSource) Client() (any, error) {
	return s.load(ClientSchemaName)
}

func (s *FileSource) load(name string) (any, error) {
	for _, parser := range parsers {
		file := filepath.Join(s.path, name+parser.extension)

		data, err := os.ReadFile(file)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, errors.Errorf("failed to read %s: %v", file, err)
		}

		value, err := parser.parse(data)
		if err != nil {
			return nil, errors.Errorf("failed to parse %s: %v", file, err)
		}

		return value, nil
	}

	return nil, nil
}

// StaticSource serves schemas already held in memory
type StaticSource struct {
	CoreSchema   any
	ClientSchema any
}

func (s StaticSource) Core() (any, error) {
	return s.CoreSchema, nil
}

func (s StaticSource) Client() (any, error) {
	return s.ClientSchema, nil
}
