package cpu

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Archive entry names.
const (
	stateEntry = "cpu_state.json"
	ramEntry   = "ram.bin"
	romEntry   = "rom.bin"
)

// snapshotState holds the registers and run status. Memory goes into
// separate binary entries.
type snapshotState struct {
	A          uint16 `json:"a"`
	D          uint16 `json:"d"`
	PC         uint16 `json:"pc"`
	Halted     bool   `json:"halted"`
	Steps      uint64 `json:"steps"`
	ProgramLen int    `json:"program_len"`
}

// HibernateToBytes serialises the machine into an in-memory ZIP archive
// holding cpu_state.json, ram.bin and rom.bin.
func (c *CPU) HibernateToBytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := snapshotState{
		A:          c.A,
		D:          c.D,
		PC:         c.PC,
		Halted:     c.Halted,
		Steps:      c.Steps,
		ProgramLen: c.programLen,
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", stateEntry, err)
	}
	if err := addEntry(zw, stateEntry, jsonData); err != nil {
		return nil, err
	}

	if err := addEntry(zw, ramEntry, wordsToBytes(c.RAM[:])); err != nil {
		return nil, err
	}
	if err := addEntry(zw, romEntry, wordsToBytes(c.ROM[:c.programLen])); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// RestoreFromBytes replaces the machine state with a snapshot produced by
// HibernateToBytes.
func (c *CPU) RestoreFromBytes(data []byte) error {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	entries := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		entries[f.Name] = f
	}

	jsonData, err := readEntry(entries, stateEntry)
	if err != nil {
		return err
	}
	var state snapshotState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal %s: %w", stateEntry, err)
	}
	if state.ProgramLen < 0 || state.ProgramLen > ROMSize {
		return fmt.Errorf("snapshot program length %d out of range", state.ProgramLen)
	}

	ram, err := readEntry(entries, ramEntry)
	if err != nil {
		return err
	}
	rom, err := readEntry(entries, romEntry)
	if err != nil {
		return err
	}

	c.A = state.A
	c.D = state.D
	c.PC = state.PC
	c.Halted = state.Halted
	c.Steps = state.Steps
	c.programLen = state.ProgramLen

	c.RAM = [RAMSize]uint16{}
	bytesToWords(ram, c.RAM[:])
	c.ROM = [ROMSize]uint16{}
	bytesToWords(rom, c.ROM[:c.programLen])

	return nil
}

// HibernateToFile writes the hibernation archive to the given file path.
func (c *CPU) HibernateToFile(path string) error {
	data, err := c.HibernateToBytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a hibernation archive from the given file path and
// restores the machine state.
func (c *CPU) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.RestoreFromBytes(data)
}

func addEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err == nil {
		_, err = w.Write(data)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func readEntry(entries map[string]*zip.File, name string) ([]byte, error) {
	f, ok := entries[name]
	if !ok {
		return nil, fmt.Errorf("snapshot has no %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func wordsToBytes(src []uint16) []byte {
	out := make([]byte, len(src)*2)
	for i, v := range src {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}

// bytesToWords decodes little endian words into dst, stopping at
// whichever of src and dst runs out first.
func bytesToWords(src []byte, dst []uint16) {
	n := min(len(src)/2, len(dst))
	for i := 0; i < n; i++ {
		dst[i] = binary.LittleEndian.Uint16(src[i*2:])
	}
}
