package sqlinline

const QInsertCreditTransaction = `--sql 6b41b00c-90a8-47bc-bfca-7559a3c6090b
insert into credit_transactions (id, profile_id, transaction_type, paid_amount, free_amount, source, reference, created_at)
values (coalesce(nullif($1::text, '')::uuid, gen_random_uuid()), $2::uuid, $3::text, $4::int, $5::int, $6::text, $7::text, now())
returning id::text, created_at;
`

const QSelectCreditTransactions = `--sql ac62aa89-3a86-4eab-968c-e58733cc6601
select id::text, profile_id::text, transaction_type, paid_amount, free_amount, source, reference, created_at
from credit_transactions
where profile_id = $1::uuid
order by created_at desc
limit $2::int;
`
