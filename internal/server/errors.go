package server

import (
	"encoding/json"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/validate"
)

// submitStatus maps an intake error onto a gRPC status. A failed validation carries the
// user-facing feedback as a Struct detail.
func submitStatus(err error) error {
	var failed *validate.FailedError
	if errors.As(err, &failed) {
		return statusWithDetail(codes.InvalidArgument, failed.Verdict.Feedback.Message, failed.Verdict.Feedback)
	}
	return status.Error(common.Code(err), err.Error())
}

func statusWithDetail(code codes.Code, msg string, detail any) error {
	st := status.New(code, msg)
	d, err := toStruct(detail)
	if err != nil {
		return st.Err()
	}
	if withDetail, err := st.WithDetails(d); err == nil {
		st = withDetail
	}
	return st.Err()
}

// toStruct converts v to a Struct through its JSON encoding, so field names follow json tags.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// DetailStruct returns the first Struct detail of a status error, if any.
func DetailStruct(err error) (*structpb.Struct, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return nil, false
	}
	for _, d := range st.Details() {
		if s, ok := d.(*structpb.Struct); ok {
			return s, true
		}
	}
	return nil, false
}
