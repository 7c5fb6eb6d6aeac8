package event

import (
	"reflect"
	"testing"
)

func TestNewKafkaRecorderValidation(t *testing.T) {
	if _, err := NewKafkaRecorder("", "alerts.fired"); err == nil {
		t.Error("NewKafkaRecorder expected error for empty brokers")
	}
	if _, err := NewKafkaRecorder("localhost:9092", ""); err == nil {
		t.Error("NewKafkaRecorder expected error for empty topic")
	}

	recorder, err := NewKafkaRecorder("localhost:9092", "alerts.fired")
	if err != nil {
		t.Fatalf("NewKafkaRecorder error = %v", err)
	}
	recorder.Close()
}

func TestParseBrokers(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "single broker", input: "localhost:9092", expected: []string{"localhost:9092"}},
		{
			name:     "multiple with whitespace",
			input:    "kafka-1:9092, kafka-2:9092 ,kafka-3:9092",
			expected: []string{"kafka-1:9092", "kafka-2:9092", "kafka-3:9092"},
		},
		{name: "empty", input: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseBrokers(tt.input); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseBrokers(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
