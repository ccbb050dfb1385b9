package text

import "testing"

func TestPlain(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "just  text\n here", "just text here"},
		{"entities", "Tom &amp; Jerry &lt;3", "Tom & Jerry <3"},
		{"paragraphs", "<p>First <b>bold</b> para.</p>\n<p>Second&nbsp;one.</p>", "First bold para.\nSecond one."},
		{"breaks", "line one<br>line two<br/>", "line one\nline two"},
		{"script", "<p>keep</p><script>var x = '<p>';</script><style>p{}</style>", "keep"},
		{"list", "<ul><li>a</li><li>b</li></ul>", "a\nb"},
		{"table", "<table><tr><td>a</td><td>b</td></tr></table>", "a b"},
		{"empty", "<p> </p>", ""},
		{"nbsp runs", "10&nbsp;&nbsp;kg  and\u00a0more", "10\u00a0\u00a0kg and\u00a0more"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Plain(tt.in); got != tt.want {
				t.Errorf("Plain(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTrimWords(t *testing.T) {
	if got := TrimWords("one two  three", 5); got != "one two three" {
		t.Errorf("got %q", got)
	}
	if got := TrimWords("one two three four", 2); got != "one two…" {
		t.Errorf("got %q", got)
	}
	if got := TrimWords("10\u00a0kg of flour", 2); got != "10\u00a0kg of…" {
		t.Errorf("got %q", got)
	}
}
