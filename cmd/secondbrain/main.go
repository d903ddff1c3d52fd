// Command secondbrain は学生向けSecond BrainのAPIサーバーとワーカーを起動する。
package main

import (
	"os"

	"github.com/hitoshi/secondbrain/internal/app"
)

func main() {
	os.Exit(app.Main())
}
