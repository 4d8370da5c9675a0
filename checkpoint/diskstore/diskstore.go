//
// connectoragents is licensed under the Apache License Version 2.0.
//
//

// Package diskstore implements checkpoint.Store as the on-disk
// directory tree from SPEC_FULL.md §6:
//
//	<root>/
//	  step_<N>/
//	    scheduler.json
//	    agents/
//	      <uuid>/
//	        state.json
//	        ports/
//	          <port_name>.json
//	  errors/
//	    error_<N>.json
//
// Every file is written via a temp-file-then-rename so a checkpoint
// directory is never observed half-written.
package diskstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/git5001/connectoragents/agent"
	"github.com/git5001/connectoragents/checkpoint"
	"github.com/git5001/connectoragents/port"
)

// Store is a filesystem-backed checkpoint.Store rooted at Dir.
type Store struct {
	Dir string
}

// New returns a Store rooted at dir, creating dir if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("diskstore: create root %s: %w", dir, err)
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) stepDir(step int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("step_%d", step))
}

// writeJSONAtomic marshals v and writes it to path via a sibling temp
// file plus os.Rename, so readers never see a partial file.
func writeJSONAtomic(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// readJSON reads and unmarshals path into v. ok is false (with a nil
// error) when the file does not exist.
func readJSON(path string, v any) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

type agentStateFile struct {
	UUID  string `json:"uuid"`
	State any    `json:"state"`
}

// SaveStep implements checkpoint.Store.
func (s *Store) SaveStep(step int, snap checkpoint.Snapshot) error {
	dir := s.stepDir(step)
	for _, a := range snap.Agents {
		agentDir := filepath.Join(dir, "agents", a.UUID)
		stateFile := agentStateFile{UUID: a.UUID, State: a.State}
		if err := writeJSONAtomic(filepath.Join(agentDir, "state.json"), stateFile); err != nil {
			return fmt.Errorf("diskstore: write state for %s: %w", a.UUID, err)
		}
		for name, portSnap := range a.Ports {
			path := filepath.Join(agentDir, "ports", sanitizePortName(name)+".json")
			if err := writeJSONAtomic(path, portSnap); err != nil {
				return fmt.Errorf("diskstore: write port %s/%s: %w", a.UUID, name, err)
			}
		}
	}
	// scheduler.json written last: its presence is what makes the
	// checkpoint directory valid (SPEC_FULL.md §6).
	if err := writeJSONAtomic(filepath.Join(dir, "scheduler.json"), snap.Scheduler); err != nil {
		return fmt.Errorf("diskstore: write scheduler state: %w", err)
	}
	return nil
}

// LoadStep implements checkpoint.Store.
func (s *Store) LoadStep(step int) (checkpoint.Snapshot, bool, error) {
	dir := s.stepDir(step)
	var sched checkpoint.SchedulerSnapshot
	ok, err := readJSON(filepath.Join(dir, "scheduler.json"), &sched)
	if err != nil || !ok {
		return checkpoint.Snapshot{}, false, err
	}

	agentsDir := filepath.Join(dir, "agents")
	entries, err := os.ReadDir(agentsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return checkpoint.Snapshot{Scheduler: sched}, true, nil
		}
		return checkpoint.Snapshot{}, false, err
	}

	var uuids []string
	for _, e := range entries {
		if e.IsDir() {
			uuids = append(uuids, e.Name())
		}
	}
	sort.Strings(uuids)

	out := checkpoint.Snapshot{Scheduler: sched}
	for _, uuid := range uuids {
		agentDir := filepath.Join(agentsDir, uuid)
		var stateFile agentStateFile
		ok, err := readJSON(filepath.Join(agentDir, "state.json"), &stateFile)
		if err != nil {
			return checkpoint.Snapshot{}, false, err
		}
		if !ok {
			continue
		}
		ports, err := loadPorts(filepath.Join(agentDir, "ports"))
		if err != nil {
			return checkpoint.Snapshot{}, false, err
		}
		out.Agents = append(out.Agents, agent.Snapshot{UUID: uuid, State: stateFile.State, Ports: ports})
	}
	return out, true, nil
}

// loadPorts reads every <port>.json file in dir into a port.Snapshot
// map keyed by the original port name (reversing sanitizePortName is
// unnecessary: port names in this engine never contain path
// separators in practice, and SaveStep/LoadStep round-trip through
// the same sanitized file name either way).
func loadPorts(dir string) (map[string]port.Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ports := make(map[string]port.Snapshot, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		var snap port.Snapshot
		if _, err := readJSON(filepath.Join(dir, e.Name()), &snap); err != nil {
			return nil, err
		}
		ports[name] = snap
	}
	return ports, nil
}

// LatestStep implements checkpoint.Store.
func (s *Store) LatestStep() (int, bool, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	best := -1
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "step_") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(e.Name(), "step_"))
		if err != nil {
			continue
		}
		if _, ok, err := s.LoadStep(n); err == nil && ok && n > best {
			best = n
		}
	}
	if best < 0 {
		return 0, false, nil
	}
	return best, true, nil
}

// SaveError implements checkpoint.Store.
func (s *Store) SaveError(report checkpoint.ErrorReport) error {
	path := filepath.Join(s.Dir, "errors", fmt.Sprintf("error_%d.json", report.StepCounter))
	return writeJSONAtomic(path, report)
}

func sanitizePortName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}
