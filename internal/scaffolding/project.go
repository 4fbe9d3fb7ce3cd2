package scaffolding

import (
	"os"
	"path/filepath"

	"github.com/conneroisu/snazzy/internal/errors"
)

// ProjectFile is one file written by PrepareProject.
type ProjectFile struct {
	Name    string
	Content string
}

// ProjectFiles are the files a new project needs next to its applications.
var ProjectFiles = []ProjectFile{
	{
		Name: ".gitignore",
		Content: `/.babelrc
/_site/
/node_modules/
.*.swp
`,
	},
	{
		Name: "package.json",
		Content: `{
  "devDependencies": {
    "@babel/cli": "^7.23.9",
    "@babel/core": "^7.24.0",
    "@babel/preset-env": "^7.24.0",
    "handlebars": "^4.7.8",
    "jquery": "^3.7.1",
    "marked": "^12.0.0",
    "sass": "^1.71.1"
  }
}
`,
	},
	{
		Name: ".babelrc",
		Content: `{
    "presets": ["@babel/preset-env"]
}
`,
	},
}

// Distfiles are removed by a full clean in addition to the site directory.
var Distfiles = []string{".babelrc", "node_modules", "package-lock.json"}

// PrepareProject writes every missing project file into dir and returns the
// paths it created. Existing files are left alone.
func PrepareProject(dir string) ([]string, error) {
	var created []string
	for _, file := range ProjectFiles {
		path := filepath.Join(dir, file.Name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(file.Content), 0o644); err != nil {
			return created, errors.WrapIO(err, errors.ErrCodeWriteFailed, "failed to write project file").
				WithLocation(path)
		}
		created = append(created, path)
	}
	return created, nil
}
