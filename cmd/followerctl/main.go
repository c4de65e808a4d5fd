// followerctl はフォロワーサービスを操作するコマンドラインツール。
//
//	followerctl subscribe crm.lead --doc 10,11 --party 3,4 --policy update
//	followerctl followers crm.lead 10 -o yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
