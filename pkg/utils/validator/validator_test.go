package validator

import (
	"strings"
	"testing"
)

type chatInput struct {
	Query string `json:"query" validate:"notblank"`
	From  string `json:"from" validate:"omitempty,phone"`
}

func TestNew(t *testing.T) {
	v := New()
	if v.Engine() == nil {
		t.Fatal("Engine() returned nil")
	}
	if v.GetTranslator(LangEN) == nil {
		t.Error("English translator should be registered")
	}
	if v.GetTranslator(LangZH) == nil {
		t.Error("Chinese translator should be registered")
	}
	if v.GetTranslator("fr") != nil {
		t.Error("unsupported language should return nil")
	}
}

func TestValidate_NotBlank(t *testing.T) {
	v := New()
	tests := []struct {
		name  string
		query string
		valid bool
	}{
		{"text", "where is my order?", true},
		{"arabic", "أين طلبي؟", true},
		{"empty", "", false},
		{"whitespace", " \t\n ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(chatInput{Query: tt.query})
			if tt.valid && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestValidate_Phone(t *testing.T) {
	v := New()
	tests := []struct {
		phone string
		valid bool
	}{
		{"+15550001111", true},
		{"whatsapp:+966500000000", true},
		{"15550001111", true},
		{"+0123", false},
		{"whatsapp:", false},
		{"call me", false},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			err := v.ValidateVar(tt.phone, TagPhone)
			if tt.valid != (err == nil) {
				t.Errorf("ValidateVar(%q) error = %v, want valid = %v", tt.phone, err, tt.valid)
			}
		})
	}
}

func TestValidateWithLang(t *testing.T) {
	v := New()
	invalid := chatInput{Query: "  ", From: "nope"}

	t.Run("English", func(t *testing.T) {
		errs := v.ValidateWithLang(invalid, LangEN)
		if errs == nil {
			t.Fatal("ValidateWithLang() should return errors")
		}
		if len(errs.Errors) != 2 {
			t.Fatalf("expected 2 errors, got %d", len(errs.Errors))
		}
		if !errs.HasField("query") || !errs.HasField("from") {
			t.Errorf("errors should use json field names, got %+v", errs.Errors)
		}
		if errs.Errors[0].Message != "query is required" {
			t.Errorf("unexpected message %q", errs.Errors[0].Message)
		}
	})

	t.Run("Chinese", func(t *testing.T) {
		errs := v.ValidateWithLang(invalid, LangZH)
		if errs == nil {
			t.Fatal("ValidateWithLang() should return errors")
		}
		if !strings.Contains(errs.Error(), "必填") {
			t.Errorf("expected Chinese message, got %q", errs.Error())
		}
	})

	t.Run("fallback to English", func(t *testing.T) {
		errs := v.ValidateWithLang(invalid, "fr")
		if errs == nil || !strings.Contains(errs.Error(), "is required") {
			t.Errorf("expected English fallback, got %v", errs)
		}
	})

	t.Run("valid", func(t *testing.T) {
		if errs := v.ValidateWithLang(chatInput{Query: "hi"}, LangEN); errs != nil {
			t.Errorf("expected nil, got %v", errs)
		}
	})
}

func TestValidateVarWithLang(t *testing.T) {
	errs := VarWithLang("", "required", LangEN)
	if errs == nil || len(errs.Messages()) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
}

func TestRegisterValidationWithTranslation(t *testing.T) {
	v := New()
	err := v.RegisterValidationWithTranslation("magic", func(fl FieldLevel) bool {
		return fl.Field().String() == "please"
	}, map[string]string{
		LangEN: "{0} must be the magic word",
		LangZH: "{0}必须是魔法单词",
	})
	if err != nil {
		t.Fatalf("RegisterValidationWithTranslation() error: %v", err)
	}

	type input struct {
		Word string `json:"word" validate:"magic"`
	}
	errs := v.ValidateWithLang(input{Word: "now"}, LangEN)
	if errs == nil || errs.Errors[0].Message != "word must be the magic word" {
		t.Errorf("unexpected result %v", errs)
	}
}

func TestSetGlobal(t *testing.T) {
	original := Global()
	defer SetGlobal(original)

	custom := New()
	SetGlobal(custom)
	if Global() != custom {
		t.Error("Global() should return the validator passed to SetGlobal")
	}
}
