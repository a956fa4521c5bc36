package scratch14

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/chazu/scratchkit/objtable"
)

// ---------------------------------------------------------------------------
// Container: header, info table, stage table
// ---------------------------------------------------------------------------

const (
	headerSize   = 10
	infoSizeSize = 4
)

var (
	// Header is written on save. Loading also accepts HeaderV01.
	Header    = []byte("ScratchV02")
	HeaderV01 = []byte("ScratchV01")
)

var (
	ErrBadHeader    = errors.New("not a legacy project file")
	ErrInfoSize     = errors.New("info size exceeds file")
	ErrInfoRoot     = errors.New("info table root is not a dictionary")
	ErrStageRoot    = errors.New("stage table root is not a stage")
	ErrTrailingData = errors.New("data after stage table")
)

// Container is a decoded legacy file: two linked object graphs plus the
// tables they came from. The tables fix entry order for a later re-encode.
type Container struct {
	Version    string
	Info       *objtable.Dictionary
	InfoTable  *objtable.Table
	Stage      *objtable.UserObject
	StageTable *objtable.Table
}

// ReadContainer decodes a legacy file.
func ReadContainer(data []byte) (*Container, error) {
	if len(data) < headerSize+infoSizeSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadHeader, len(data))
	}
	header := data[:headerSize]
	if !bytes.Equal(header, Header) && !bytes.Equal(header, HeaderV01) {
		return nil, fmt.Errorf("%w: header %q", ErrBadHeader, header)
	}
	c := &Container{Version: string(header)}

	infoSize := int(binary.BigEndian.Uint32(data[headerSize:]))
	start := headerSize + infoSizeSize
	if infoSize > len(data)-start {
		return nil, fmt.Errorf("%w: %d of %d bytes", ErrInfoSize, infoSize, len(data)-start)
	}

	infoTable, err := readTable(data[start:start+infoSize], "info")
	if err != nil {
		return nil, err
	}
	info, ok := infoTable.Root().(*objtable.Dictionary)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInfoRoot, infoTable.Root().Class())
	}
	c.Info, c.InfoTable = info, infoTable

	rest := data[start+infoSize:]
	d := objtable.NewDecoder(rest)
	stageTable, err := d.ReadTable()
	if err != nil {
		return nil, fmt.Errorf("stage table: %w", err)
	}
	if err := linkTable(stageTable, "stage"); err != nil {
		return nil, err
	}
	if d.Remaining() > 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, d.Remaining())
	}
	stage, ok := stageTable.Root().(*objtable.UserObject)
	if !ok || !stage.Is("ScratchStageMorph") {
		return nil, fmt.Errorf("%w: %s", ErrStageRoot, stageTable.Root().Class())
	}
	c.Stage, c.StageTable = stage, stageTable
	return c, nil
}

func readTable(data []byte, name string) (*objtable.Table, error) {
	d := objtable.NewDecoder(data)
	t, err := d.ReadTable()
	if err != nil {
		return nil, fmt.Errorf("%s table: %w", name, err)
	}
	if d.Remaining() > 0 {
		return nil, fmt.Errorf("%s table: %w: %d bytes", name, ErrTrailingData, d.Remaining())
	}
	if err := linkTable(t, name); err != nil {
		return nil, err
	}
	return t, nil
}

func linkTable(t *objtable.Table, name string) error {
	if t.Len() == 0 {
		return fmt.Errorf("%s table: %w: empty table", name, objtable.ErrBadCount)
	}
	if err := t.Link(); err != nil {
		return fmt.Errorf("%s table: %w", name, err)
	}
	return nil
}

// Bytes encodes c. Objects that were read from c's tables keep their
// relative order, so an unchanged container re-encodes byte for byte.
func (c *Container) Bytes() ([]byte, error) {
	infoTable, err := objtable.FlattenLike(c.Info, c.InfoTable)
	if err != nil {
		return nil, fmt.Errorf("info table: %w", err)
	}
	info, err := infoTable.Encode()
	if err != nil {
		return nil, fmt.Errorf("info table: %w", err)
	}
	stageTable, err := objtable.FlattenLike(c.Stage, c.StageTable)
	if err != nil {
		return nil, fmt.Errorf("stage table: %w", err)
	}
	stage, err := stageTable.Encode()
	if err != nil {
		return nil, fmt.Errorf("stage table: %w", err)
	}

	version := []byte(c.Version)
	if len(version) != headerSize {
		version = Header
	}
	var buf bytes.Buffer
	buf.Grow(headerSize + infoSizeSize + len(info) + len(stage))
	buf.Write(version)
	var size [infoSizeSize]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(info)))
	buf.Write(size[:])
	buf.Write(info)
	buf.Write(stage)

	c.InfoTable, c.StageTable = infoTable, stageTable
	return buf.Bytes(), nil
}
