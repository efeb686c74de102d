// Package files reads and writes job files: one YAML document per job,
// named after the job.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"pgagent-yaml/internal/job"
	"pgagent-yaml/internal/serializer"
	"pgagent-yaml/internal/shared"
)

// Extension of written job files. Load also accepts ".yml".
const Extension = ".yaml"

// Dir works with job files on a filesystem.
type Dir struct {
	fs afero.Fs
}

// New creates a Dir over fs. A nil fs means the OS filesystem.
func New(fs afero.Fs) *Dir {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Dir{fs: fs}
}

// FileName returns the file name of a job.
func FileName(jobName string) string {
	return jobName + Extension
}

// PrepareOutDir makes dir ready for export. A missing dir is created. A
// non-empty dir is an error unless clean is set, in which case its content
// is removed.
func (d *Dir) PrepareOutDir(dir string, clean bool) error {
	info, err := d.fs.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return d.mkdir(dir)
	case err != nil:
		return shared.MarkKind(fmt.Errorf("can not access directory %q: %w", dir, err), shared.KindUsage)
	case !info.IsDir():
		return shared.MarkKind(fmt.Errorf("%q is not a directory", dir), shared.KindUsage)
	}

	empty, err := afero.IsEmpty(d.fs, dir)
	if err != nil {
		return shared.MarkKind(fmt.Errorf("can not access directory %q: %w", dir, err), shared.KindUsage)
	}
	if empty {
		return nil
	}
	if !clean {
		return shared.MarkKind(fmt.Errorf("directory %q is not empty (use --clean)", dir), shared.KindUsage)
	}
	if err := d.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("clean %q: %w", dir, err)
	}
	return d.mkdir(dir)
}

func (d *Dir) mkdir(dir string) error {
	if err := d.fs.MkdirAll(dir, 0o755); err != nil {
		return shared.MarkKind(fmt.Errorf("can not create directory %q: %w", dir, err), shared.KindUsage)
	}
	return nil
}

// WriteJobs writes every job to dir/<name>.yaml and returns the written
// paths in job name order.
func (d *Dir) WriteJobs(dir string, jobs []job.Job, opts serializer.Options) ([]string, error) {
	sorted := slices.Clone(jobs)
	job.SortByName(sorted)

	paths := make([]string, 0, len(sorted))
	for _, j := range sorted {
		if err := checkFileName(j.Name); err != nil {
			return paths, err
		}
		data, err := serializer.EncodeJob(j, opts)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(dir, FileName(j.Name))
		if err := afero.WriteFile(d.fs, path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func checkFileName(name string) error {
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." || strings.ContainsRune(name, 0) {
		return shared.NewValidationError(fmt.Sprintf("job %q", name), "name", "can not be used as a file name")
	}
	return nil
}

// Source is what Load found.
type Source struct {
	Jobs []job.Job
	// Files lists the loaded files in name order.
	Files []string
	// SingleFile is set when the path named a file. Only the jobs it
	// defines are managed then; a directory manages the whole store.
	SingleFile bool
	// Windows names the schedules whose files spell out a start or end.
	Windows job.WindowSet
}

// HasWindow reports whether any file spells out a schedule start or end.
func (s Source) HasWindow() bool {
	return s.Windows.Any()
}

// Managed returns the names of the jobs a sync may touch, or nil when every
// job in the store is managed.
func (s Source) Managed() []string {
	if !s.SingleFile {
		return nil
	}
	return job.Names(s.Jobs)
}

// Load reads a single job file, or every *.yaml and *.yml file directly
// inside a directory. A job defined in two files is a validation error.
func (d *Dir) Load(path string) (Source, error) {
	info, err := d.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Source{}, shared.MarkKind(fmt.Errorf("source %q does not exist", path), shared.KindNotFound)
		}
		return Source{}, fmt.Errorf("stat %s: %w", path, err)
	}

	src := Source{SingleFile: !info.IsDir(), Windows: make(job.WindowSet)}
	if src.SingleFile {
		src.Files = []string{path}
	} else if src.Files, err = d.list(path); err != nil {
		return Source{}, err
	}

	origin := make(map[string]string)
	for _, file := range src.Files {
		data, err := afero.ReadFile(d.fs, file)
		if err != nil {
			return Source{}, fmt.Errorf("read %s: %w", file, err)
		}
		doc, err := serializer.DecodeDocument(data, file)
		if err != nil {
			return Source{}, err
		}
		for _, j := range doc.Jobs {
			if prev, ok := origin[j.Name]; ok {
				return Source{}, shared.NewValidationError(fmt.Sprintf("job %q", j.Name), "name",
					fmt.Sprintf("defined in both %s and %s", prev, file))
			}
			origin[j.Name] = file
		}
		src.Jobs = append(src.Jobs, doc.Jobs...)
		src.Windows.Merge(doc.Windows)
	}
	job.SortByName(src.Jobs)
	return src, nil
}

func (d *Dir) list(dir string) ([]string, error) {
	entries, err := afero.ReadDir(d.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		switch filepath.Ext(name) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, name))
		}
	}
	slices.Sort(files)
	return files, nil
}
