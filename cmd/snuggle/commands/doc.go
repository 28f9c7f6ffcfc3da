// Package commands implements the snuggle command line.
//
// Growth:
//
//	snuggle percentile weight 7.2 --age 4 --gender female
//	snuggle curves height --gender male
//	snuggle history <child-id> --kind head
//
// Children:
//
//	snuggle child add --name Ada --dob 2026-05-01 --gender female
//	snuggle child list
//	snuggle child measure <child-id> --weight 6.1 --height 62
//
// Engagement:
//
//	snuggle open
//	snuggle moment first_smile --child <child-id>
//	snuggle award 25 --reason feeding-log
//	snuggle photo <child-id>
//	snuggle summary --all
//
// Operations:
//
//	snuggle reminders pending|deliver
//	snuggle migrate status|rollback
//	snuggle features
//	snuggle worker [--once]
//
// Every command reads its configuration from the environment and accepts
// --user and --json.
package commands
