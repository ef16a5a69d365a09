package record

const schemaText = `
{
    "name": "record",
    "type": "record",
    "fields": [
        {"name": "name", "type": "string"},
        {"name": "task", "type": "string"},
        {"name": "number", "type": "string"},
        {"name": "order", "type": "long"},
        {"name": "time_start", "type": "long"},
        {"name": "time_end", "type": "long"},
        {"name": "time_total", "type": "long"},
        {"name": "time_resolve", "type": "long"},
        {"name": "time_connect", "type": "long"},
        {"name": "time_write", "type": "long"},
        {"name": "time_delay", "type": "long"},
        {"name": "time_read", "type": "long"},
        {"name": "request_method", "type": "string"},
        {"name": "request_url", "type": "string"},
        {"name": "request_version", "type": "string"},
        {"name": "request_headers", "type": {"type": "array", "items": {"type": "array", "items": "string"}}},
        {"name": "request_body", "type": "string"},
        {"name": "response_version", "type": "string"},
        {"name": "response_status", "type": "long"},
        {"name": "response_reason", "type": "string"},
        {"name": "response_headers", "type": {"type": "array", "items": {"type": "array", "items": "string"}}},
        {"name": "response_body", "type": "string"},
        {"name": "asserts", "type":
            {
                "type": "array",
                "items": {
                    "name": "assert",
                    "type": "record",
                    "fields": [
                        {"name": "expr", "type": "string"},
                        {"name": "left", "type": "string"},
                        {"name": "compare", "type": "string"},
                        {"name": "right", "type": "string"},
                        {"name": "result", "type": "boolean"}
                    ]
                }
            }
        },
        {"name": "error", "type": "string"}
    ]
}
`

var meta = [2][2]string{
	{"fan.schema", schemaText},
	{"fan.codec", "null"},
}

const (
	magic  = "Obj\x01"
	marker = "fansyncmarker\x02\x02\x02"
)
