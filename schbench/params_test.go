package schbench

import (
	"reflect"
	"strings"
	"testing"
)

func TestDefaultParamsArgs(t *testing.T) {
	args := DefaultParams().Args()

	want := []string{
		"-m", "1",
		"-t", "1",
		"-p", "0",
		"-r", "5",
		"-i", "5",
		"-F", "256",
		"-n", "5",
		"-R", "0",
		"-w", "0",
		"-L",
	}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("args = %v, want %v", args, want)
	}
}

func TestParamsArgs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
		want   string
	}{
		{
			name:   "autobench adds -a",
			mutate: func(p *Params) { p.Autobench = true },
			want:   "-m 1 -t 1 -p 0 -r 5 -i 5 -F 256 -n 5 -R 0 -w 0 -a -L",
		},
		{
			name:   "locking off drops -L",
			mutate: func(p *Params) { p.Locking = false },
			want:   "-m 1 -t 1 -p 0 -r 5 -i 5 -F 256 -n 5 -R 0 -w 0",
		},
		{
			name: "runtime feeds both -r and -i",
			mutate: func(p *Params) {
				p.Runtime = 30
			},
			want: "-m 1 -t 1 -p 0 -r 30 -i 30 -F 256 -n 5 -R 0 -w 0 -L",
		},
		{
			name: "full override",
			mutate: func(p *Params) {
				p.Threads = 4
				p.Workers = 16
				p.Bytes = 1024
				p.Runtime = 60
				p.CacheFootprint = 512
				p.Operations = 10
				p.RPS = 2000
				p.Warmup = 5
			},
			want: "-m 4 -t 16 -p 1024 -r 60 -i 60 -F 512 -n 10 -R 2000 -w 5 -L",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)

			got := strings.Join(p.Args(), " ")
			if got != tt.want {
				t.Errorf("args = %q, want %q", got, tt.want)
			}
		})
	}
}
