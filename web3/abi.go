package web3

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// CounterABI is the ABI of the ConfidentialCounter contract.
const CounterABI = `[
  {"type":"constructor","inputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"owner","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
  {"type":"function","name":"addToCounter","inputs":[{"name":"value","type":"uint32"}],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"addRandomToCounter","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"resetCounter","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
  {"type":"function","name":"getPublicTotal","inputs":[],"outputs":[{"name":"","type":"uint32"}],"stateMutability":"view"},
  {"type":"function","name":"getUserContribution","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint32"}],"stateMutability":"view"},
  {"type":"function","name":"getEncryptedCounter","inputs":[],"outputs":[{"name":"","type":"bytes"}],"stateMutability":"view"},
  {"type":"function","name":"getEncryptedUserContribution","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"bytes"}],"stateMutability":"view"},
  {"type":"function","name":"decryptMyContribution","inputs":[],"outputs":[{"name":"","type":"uint32"}],"stateMutability":"view"},
  {"type":"function","name":"isCounterAboveThreshold","inputs":[{"name":"threshold","type":"uint32"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"getMaxValue","inputs":[{"name":"value","type":"uint32"}],"outputs":[{"name":"","type":"uint32"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"performEncryptedOperation","inputs":[{"name":"operation","type":"uint8"},{"name":"value","type":"uint32"}],"outputs":[{"name":"","type":"uint32"}],"stateMutability":"nonpayable"},
  {"type":"function","name":"conditionalOperation","inputs":[{"name":"condition","type":"bool"},{"name":"valueIfTrue","type":"uint32"},{"name":"valueIfFalse","type":"uint32"}],"outputs":[{"name":"","type":"uint32"}],"stateMutability":"pure"},
  {"type":"event","name":"CounterIncremented","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"publicTotal","type":"uint32","indexed":false}]},
  {"type":"event","name":"RandomValueAdded","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"publicTotal","type":"uint32","indexed":false}]},
  {"type":"event","name":"CounterReset","anonymous":false,"inputs":[{"name":"owner","type":"address","indexed":true}]},
  {"type":"event","name":"ThresholdChecked","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"threshold","type":"uint32","indexed":false},{"name":"result","type":"bool","indexed":false}]},
  {"type":"event","name":"MaxValueComputed","anonymous":false,"inputs":[{"name":"user","type":"address","indexed":true},{"name":"value","type":"uint32","indexed":false},{"name":"maxValue","type":"uint32","indexed":false}]}
]`

// counterABI is the parsed CounterABI.
var counterABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(CounterABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()
