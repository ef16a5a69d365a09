package record

import "io"

// Writer emits the container header on construction, then one
// sync-marker-terminated block per Write call. It is not safe for
// concurrent use; the driver gives every worker iteration its own file
// and Writer.
type Writer struct {
	w io.Writer
}

// NewWriter writes the container header (magic, metadata block, marker)
// to w and returns a Writer ready to accept record blocks.
func NewWriter(w io.Writer) (*Writer, error) {
	var buf []byte
	buf = append(buf, magic...)
	buf = encodeLong(int64(len(meta)), buf)
	for _, kv := range meta {
		buf = encodeBytes(kv[0], buf)
		buf = encodeBytes(kv[1], buf)
	}
	buf = append(buf, 0)
	buf = append(buf, marker...)
	if _, err := w.Write(buf); err != nil {
		return nil, err
	}
	return &Writer{w: w}, nil
}

// Write appends one block containing records, tagged with taskID/number
// for per-task file correlation, terminated by the sync marker. Each
// record is stored under its own Name; name is stored instead for a record
// whose Name is empty.
func (wr *Writer) Write(records []Record, name, taskID, number string) error {
	var data []byte
	for order, rec := range records {
		recName := rec.Name
		if recName == "" {
			recName = name
		}
		data = encodeBytes(recName, data)
		data = encodeBytes(taskID, data)
		data = encodeBytes(number, data)
		data = encodeLong(int64(order), data)
		data = encodeLong(rec.Time.Start, data)
		data = encodeLong(rec.Time.End, data)
		data = encodeLong(rec.Time.Total, data)
		data = encodeLong(rec.Time.Resolve, data)
		data = encodeLong(rec.Time.Connect, data)
		data = encodeLong(rec.Time.Write, data)
		data = encodeLong(rec.Time.Delay, data)
		data = encodeLong(rec.Time.Read, data)
		data = encodeBytes(rec.Request.Method, data)
		data = encodeBytes(rec.Request.URL, data)
		data = encodeBytes(rec.Request.Version, data)
		data = encodeLong(int64(len(rec.Request.Headers)), data)
		for _, h := range rec.Request.Headers {
			data = encodeLong(2, data)
			data = encodeBytes(h.Name, data)
			data = encodeBytes(h.Value, data)
		}
		data = encodeBytes(rec.Request.Body, data)
		data = encodeBytes(rec.Response.Version, data)
		data = encodeLong(int64(rec.Response.Status), data)
		data = encodeBytes(rec.Response.Reason, data)
		data = encodeLong(int64(len(rec.Response.Headers)), data)
		for _, h := range rec.Response.Headers {
			data = encodeLong(2, data)
			data = encodeBytes(h.Name, data)
			data = encodeBytes(h.Value, data)
		}
		data = encodeBytes(rec.Response.Body, data)
		data = encodeLong(int64(len(rec.Asserts)), data)
		for _, a := range rec.Asserts {
			data = encodeBytes(a.Expr, data)
			data = encodeBytes(a.Left, data)
			data = encodeBytes(a.Compare, data)
			data = encodeBytes(a.Right, data)
			data = encodeBool(a.Result, data)
		}
		data = encodeBytes(rec.Error, data)
	}

	var buf []byte
	buf = encodeLong(int64(len(records)), buf)
	buf = encodeLong(int64(len(data)), buf)
	buf = append(buf, data...)
	buf = append(buf, marker...)
	_, err := wr.w.Write(buf)
	return err
}
