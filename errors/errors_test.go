package errors

import (
	"errors"
	"reflect"
	"testing"
)

func TestCast(t *testing.T) {
	type args struct {
		err error
	}
	tests := []struct {
		name   string
		args   args
		want   Error
		wantOK bool
	}{
		{
			name: "with rich error",
			args: args{
				err: Error{
					Code:    ErrBadRequest,
					Kind:    KindNotOwner,
					Err:     nil,
					Message: "this was a bad request",
				},
			},
			want: Error{
				Code:    ErrBadRequest,
				Kind:    KindNotOwner,
				Err:     nil,
				Message: "this was a bad request",
			},
			wantOK: true,
		},
		{
			name: "with rich error and original error",
			args: args{
				err: Error{
					Code:    ErrBadRequest,
					Err:     errors.New("i am an error"),
					Message: "this was a bad request",
				},
			},
			want: Error{
				Code:    ErrBadRequest,
				Err:     errors.New("i am an error"),
				Message: "this was a bad request",
			},
			wantOK: true,
		},
		{
			name: "with nil error",
			args: args{
				err: nil,
			},
			want: Error{
				Code:    ErrUnexpected,
				Err:     nil,
				Message: "unknown operation",
				Details: make(Details),
			},
			wantOK: false,
		},
		{
			name: "with simple error",
			args: args{
				err: errors.New("i am an error"),
			},
			want: Error{
				Code:    ErrUnexpected,
				Err:     errors.New("i am an error"),
				Message: "unknown operation",
				Details: make(Details),
			},
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := Cast(tt.args.err); !reflect.DeepEqual(got, tt.want) || ok != tt.wantOK {
				t.Errorf("Cast() = %v, %v, want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestError_Error(t *testing.T) {
	type fields struct {
		Code    Code
		Err     error
		Message string
	}
	tests := []struct {
		name   string
		fields fields
		want   string
	}{
		{
			name: "with original error",
			fields: fields{
				Code:    ErrBadRequest,
				Err:     errors.New("hello world"),
				Message: "unknown operation",
			},
			want: "unknown operation: hello world",
		},
		{
			name: "without original error",
			fields: fields{
				Code:    ErrInternal,
				Message: "known operation",
			},
			want: "known operation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Error{
				Code:    tt.fields.Code,
				Err:     tt.fields.Err,
				Message: tt.fields.Message,
			}
			if got := e.Error(); got != tt.want {
				t.Errorf("Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		details Details
		want    Error
	}{
		{
			name: "wrap rich error",
			err: Error{
				Code:    ErrBadRequest,
				Kind:    KindTeamLocked,
				Message: "join team",
			},
			message: "handle build select",
			want: Error{
				Code:    ErrBadRequest,
				Kind:    KindTeamLocked,
				Message: "handle build select: join team",
			},
		},
		{
			name:    "wrap plain error",
			err:     errors.New("sad life"),
			message: "do stuff",
			want: Error{
				Code:    ErrUnexpected,
				Err:     errors.New("sad life"),
				Message: "do stuff",
				Details: make(Details),
			},
		},
		{
			name: "wrap with details",
			err: Error{
				Code:    ErrInternal,
				Message: "inner",
				Details: Details{"a": 1},
			},
			message: "outer",
			details: Details{"b": 2},
			want: Error{
				Code:    ErrInternal,
				Message: "outer: inner",
				Details: Details{"a": 1, "b": 2},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Cast(Wrap(tt.err, tt.message, tt.details))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Wrap() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBlameUser(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "bad request", err: Error{Code: ErrBadRequest}, want: true},
		{name: "not found", err: Error{Code: ErrNotFound}, want: true},
		{name: "protocol violation", err: Error{Code: ErrProtocolViolation}, want: true},
		{name: "internal", err: Error{Code: ErrInternal}, want: false},
		{name: "fatal", err: Error{Code: ErrFatal}, want: false},
		{name: "plain error", err: errors.New("sad life"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BlameUser(tt.err); got != tt.want {
				t.Errorf("BlameUser() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsKind(t *testing.T) {
	if !IsKind(NewTeamLockedError(nil), KindTeamLocked) {
		t.Error("IsKind() should detect team-locked")
	}
	if IsKind(NewTeamLockedError(nil), KindBlacklisted) {
		t.Error("IsKind() should not match other kinds")
	}
	if IsKind(errors.New("sad life"), KindUnknown) {
		t.Error("IsKind() should not match plain errors")
	}
}
