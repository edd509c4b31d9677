package encode

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestMarshal(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{
			name: "sentinel",
			rec:  Record{String("NoHand")},
			want: "['NoHand']",
		},
		{
			name: "mixed fields",
			rec: Record{
				Int(720), Int(1280), String("Left"),
				Tuple{Float(64), Float(51.2), Float(3), Float(3)},
				Tuple{Float(1.5), Float(2)},
				List{List{Int(1), Int(2), Int(-3)}},
			},
			want: "[720, 1280, 'Left', (64.0, 51.2, 3.0, 3.0), (1.5, 2.0), [[1, 2, -3]]]",
		},
		{
			name: "empty landmark list",
			rec:  Record{String("Right"), List{}},
			want: "['Right', []]",
		},
		{
			name: "one element tuple",
			rec:  Record{Tuple{Int(1)}},
			want: "[(1,)]",
		},
		{
			name: "quote switching",
			rec:  Record{String("it's"), String(`a\b`)},
			want: `["it's", 'a\\b']`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(Marshal(tt.rec)); got != tt.want {
				t.Errorf("Marshal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMarshal_Floats(t *testing.T) {
	tests := []struct {
		f    float64
		want string
	}{
		{f: 0.5, want: "0.5"},
		{f: 1, want: "1.0"},
		{f: 0, want: "0.0"},
		{f: -2.25, want: "-2.25"},
		{f: 0.1 + 0.2, want: "0.30000000000000004"},
		{f: 123456.789, want: "123456.789"},
		{f: 0.0001, want: "0.0001"},
		{f: 0.00001, want: "1e-05"},
		{f: 1e16, want: "1e+16"},
		{f: 1234567890123456, want: "1234567890123456.0"},
		{f: math.Inf(1), want: "inf"},
		{f: math.NaN(), want: "nan"},
	}

	for _, tt := range tests {
		if got := Float(tt.f).appendTo(nil); string(got) != tt.want {
			t.Errorf("Float(%v) = %s, want %s", tt.f, got, tt.want)
		}
	}
}

func TestUnmarshal_RoundTrip(t *testing.T) {
	records := []Record{
		{String("NoBody")},
		{Int(30), Int(720), Int(1280), Float(0.35), Float(0.13), Float(0.3), Float(0.3),
			Tuple{Float(0.5), Float(0.28)},
			List{List{Float(0.99), Float(0.5), Float(0.15), Float(-0.3)}}},
		{String("Left"), Tuple{Float(160), Float(285), Float(200), Float(200)}, List{},
			String("Right"), List{List{Int(0), Int(-1), Int(7)}}},
		{Float(1e-05), Float(-1e+16), String("it's"), String(`back\slash`), Tuple{Int(3)}},
	}

	for _, rec := range records {
		data := Marshal(rec)
		got, err := Unmarshal(data)
		if err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", data, err)
		}
		if !reflect.DeepEqual(got, rec) {
			t.Errorf("round trip of %s = %#v, want %#v", data, got, rec)
		}
	}
}

func TestUnmarshal_Whitespace(t *testing.T) {
	got, err := Unmarshal([]byte(" [ 1 ,2.5,( 'a' , ) ] \n"))
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := Record{Int(1), Float(2.5), Tuple{String("a")}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unmarshal() = %#v, want %#v", got, want)
	}
}

func TestUnmarshal_Errors(t *testing.T) {
	inputs := []string{
		"",
		"(1, 2)",
		"[1, 2",
		"[1,, 2]",
		"[1, 2,]",
		"['abc]",
		"[1] x",
		"[1.2.3]",
		"[abc]",
	}

	for _, in := range inputs {
		_, err := Unmarshal([]byte(in))
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("Unmarshal(%q) error = %v, want ErrSyntax", in, err)
		}
	}
}
