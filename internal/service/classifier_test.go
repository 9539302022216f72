package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractImageURL(t *testing.T) {
	tests := []struct {
		name    string
		comment string
		want    string
		found   bool
	}{
		{
			name:    "bare png url",
			comment: "https://cdn.example.com/cat.png",
			want:    "https://cdn.example.com/cat.png",
			found:   true,
		},
		{
			name:    "url embedded in chatter",
			comment: "please draw this https://imgur.example.com/abc.jpg for me!!",
			want:    "https://imgur.example.com/abc.jpg",
			found:   true,
		},
		{
			name:    "jpeg extension",
			comment: "http://pics.example.com/photo.jpeg",
			want:    "http://pics.example.com/photo.jpeg",
			found:   true,
		},
		{
			name:    "gif extension",
			comment: "look https://media.example.com/dance.gif",
			want:    "https://media.example.com/dance.gif",
			found:   true,
		},
		{
			name:    "webp extension",
			comment: "https://cdn.example.com/art.webp",
			want:    "https://cdn.example.com/art.webp",
			found:   true,
		},
		{
			name:    "uppercase extension",
			comment: "HTTPS://CDN.EXAMPLE.COM/CAT.PNG",
			want:    "HTTPS://CDN.EXAMPLE.COM/CAT.PNG",
			found:   true,
		},
		{
			name:    "plain chat message",
			comment: "hello everyone, love the stream",
			found:   false,
		},
		{
			name:    "non-image url",
			comment: "check out https://example.com/page.html",
			found:   false,
		},
		{
			name:    "extension without url",
			comment: "my file is cat.png on disk",
			found:   false,
		},
		{
			name:    "empty comment",
			comment: "",
			found:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractImageURL(tt.comment)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
