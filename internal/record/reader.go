package record

import (
	"bufio"
	"fmt"
	"io"
)

// Reader reads back a container written by Writer: the header (magic,
// metadata, marker) is consumed on construction, then one Block call per
// stored block. It is the conformant reader spec §8's "record writer
// round-trip" property exercises against Writer's output.
type Reader struct {
	r    *bufio.Reader
	Meta map[string]string
}

// NewReader validates the magic and sync marker and decodes the metadata
// block, leaving the Reader positioned at the first record block.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	buf := make([]byte, len(magic))
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, fmt.Errorf("record: read magic: %w", err)
	}
	if string(buf) != magic {
		return nil, fmt.Errorf("record: bad magic %q", buf)
	}
	count, err := decodeLong(br)
	if err != nil {
		return nil, fmt.Errorf("record: read meta count: %w", err)
	}
	meta := make(map[string]string, count)
	for i := int64(0); i < count; i++ {
		key, err := decodeBytes(br)
		if err != nil {
			return nil, fmt.Errorf("record: read meta key: %w", err)
		}
		value, err := decodeBytes(br)
		if err != nil {
			return nil, fmt.Errorf("record: read meta value: %w", err)
		}
		meta[key] = value
	}
	if _, err := decodeLong(br); err != nil {
		return nil, fmt.Errorf("record: read meta terminator: %w", err)
	}
	if err := expectMarker(br); err != nil {
		return nil, err
	}
	return &Reader{r: br, Meta: meta}, nil
}

// Block reads one block's records in the order they were written,
// returning io.EOF once the container is exhausted.
func (rd *Reader) Block() ([]Record, error) {
	blockCount, err := decodeLong(rd.r)
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("record: read block count: %w", err)
	}
	if _, err := decodeLong(rd.r); err != nil { // block size in bytes, unused on read
		return nil, fmt.Errorf("record: read block size: %w", err)
	}
	records := make([]Record, blockCount)
	for i := range records {
		rec, _, _, _, err := decodeRecord(rd.r)
		if err != nil {
			return nil, fmt.Errorf("record: decode record %d: %w", i, err)
		}
		records[i] = rec
	}
	if err := expectMarker(rd.r); err != nil {
		return nil, err
	}
	return records, nil
}

// decodeRecord reads one record's fields in the exact order Writer.Write
// encodes them, returning the taskID/number/order tags alongside the
// reconstructed Record; the stored name field becomes the Record's Name.
func decodeRecord(r *bufio.Reader) (rec Record, taskID, number string, order int64, err error) {
	var name string
	if name, err = decodeBytes(r); err != nil {
		return
	}
	if taskID, err = decodeBytes(r); err != nil {
		return
	}
	if number, err = decodeBytes(r); err != nil {
		return
	}
	if order, err = decodeLong(r); err != nil {
		return
	}
	rec.Name = name
	if rec.Time.Start, err = decodeLong(r); err != nil {
		return
	}
	if rec.Time.End, err = decodeLong(r); err != nil {
		return
	}
	if rec.Time.Total, err = decodeLong(r); err != nil {
		return
	}
	if rec.Time.Resolve, err = decodeLong(r); err != nil {
		return
	}
	if rec.Time.Connect, err = decodeLong(r); err != nil {
		return
	}
	if rec.Time.Write, err = decodeLong(r); err != nil {
		return
	}
	if rec.Time.Delay, err = decodeLong(r); err != nil {
		return
	}
	if rec.Time.Read, err = decodeLong(r); err != nil {
		return
	}
	if rec.Request.Method, err = decodeBytes(r); err != nil {
		return
	}
	if rec.Request.URL, err = decodeBytes(r); err != nil {
		return
	}
	if rec.Request.Version, err = decodeBytes(r); err != nil {
		return
	}
	if rec.Request.Headers, err = decodeHeaders(r); err != nil {
		return
	}
	if rec.Request.Body, err = decodeBytes(r); err != nil {
		return
	}
	if rec.Response.Version, err = decodeBytes(r); err != nil {
		return
	}
	var status int64
	if status, err = decodeLong(r); err != nil {
		return
	}
	rec.Response.Status = int(status)
	if rec.Response.Reason, err = decodeBytes(r); err != nil {
		return
	}
	if rec.Response.Headers, err = decodeHeaders(r); err != nil {
		return
	}
	if rec.Response.Body, err = decodeBytes(r); err != nil {
		return
	}
	var assertCount int64
	if assertCount, err = decodeLong(r); err != nil {
		return
	}
	rec.Asserts = make([]Assert, assertCount)
	for i := range rec.Asserts {
		if rec.Asserts[i].Expr, err = decodeBytes(r); err != nil {
			return
		}
		if rec.Asserts[i].Left, err = decodeBytes(r); err != nil {
			return
		}
		if rec.Asserts[i].Compare, err = decodeBytes(r); err != nil {
			return
		}
		if rec.Asserts[i].Right, err = decodeBytes(r); err != nil {
			return
		}
		var b byte
		if b, err = r.ReadByte(); err != nil {
			return
		}
		rec.Asserts[i].Result = b != 0
	}
	if rec.Error, err = decodeBytes(r); err != nil {
		return
	}
	return rec, taskID, number, order, nil
}

func decodeHeaders(r *bufio.Reader) ([]Header, error) {
	n, err := decodeLong(r)
	if err != nil {
		return nil, err
	}
	headers := make([]Header, n)
	for i := range headers {
		if _, err := decodeLong(r); err != nil { // inner pair-array length, always 2
			return nil, err
		}
		if headers[i].Name, err = decodeBytes(r); err != nil {
			return nil, err
		}
		if headers[i].Value, err = decodeBytes(r); err != nil {
			return nil, err
		}
	}
	return headers, nil
}

func expectMarker(r *bufio.Reader) error {
	buf := make([]byte, len(marker))
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("record: read sync marker: %w", err)
	}
	if string(buf) != marker {
		return fmt.Errorf("record: bad sync marker %q", buf)
	}
	return nil
}
