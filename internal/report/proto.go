package report

import (
	"io"

	"github.com/goccy/go-json"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/samcharles93/copyconf/pkg/memcpy/memcpytest"
)

// writePB encodes the report as a google.protobuf.Struct so consumers need
// no generated schema.
func writePB(w io.Writer, rep *memcpytest.Report) error {
	msg, err := toStruct(rep)
	if err != nil {
		return err
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func toStruct(rep *memcpytest.Report) (*structpb.Struct, error) {
	raw, err := json.Marshal(rep)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

// DecodePB reverses the pb encoding.
func DecodePB(data []byte) (*memcpytest.Report, error) {
	var msg structpb.Struct
	if err := proto.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(msg.AsMap())
	if err != nil {
		return nil, err
	}
	var rep memcpytest.Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}
